// Package ir provides the shared lineage types used by every layer.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the domain vocabulary
// (object identities, versions, dependency types, traversal flags) as the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - ObjectID{0,0} is reserved as None and is never allocated
//   - Dependency types are encoded as category<<8 | subtype
//   - All JSON tags use snake_case
//   - Names and property keys are NFC normalized before they reach storage
package ir
