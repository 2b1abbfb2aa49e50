// Package fixtures builds sample users, pets and tasks for tests and seeds
// them through a test database session.
//
// Builders on Factory are pure: they return payloads whose unique fields
// (username, email, verification token) carry a time-derived suffix and
// never touch the database. The Insert helpers validate a payload and
// write it through any Querier, normally a *testdb.Manager inside the
// test's transaction, so the rows disappear with the rollback.
package fixtures
