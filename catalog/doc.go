// Package catalog binds the generic optimistic cache engine to the product
// catalog admin domain: filtered product and category lists with
// create/update/delete flows that update subscribed views immediately and
// reconcile with the server on settlement.
//
// The package holds no cache consistency logic of its own. It defines the
// records, filters, and REST endpoints, and delegates everything else to the
// cache and mutation packages.
package catalog
