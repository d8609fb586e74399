// Package mongostore implements store.Store on MongoDB using the official v2 driver.
//
// Update is UpdateMany with a $set of the patch and reports the matched count, so a
// filter that includes the expected prior state acts as a compare-and-swap. Unique
// constraints are enforced by the indexes Provision creates; duplicate-key failures map
// to store.ErrDuplicate and network or timeout failures to store.ErrUnavailable.
package mongostore
