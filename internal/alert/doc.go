// Package alert defines the persisted finding produced by classification:
// the Alert model, its lifecycle status, the severity-derived action tier,
// and the Store interface implemented by memstore and pgstore.
package alert
