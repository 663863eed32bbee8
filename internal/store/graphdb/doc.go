// Package graphdb stores lineage records in a Bolt-speaking graph database
// (Neo4j 5 or Memgraph) through the official Neo4j Go driver.
//
// Graph model:
//
//	(:Session {id, ...})
//	(:Object  {id, originator, name, type, container, container_version,
//	           session, creation_time, seq, current})
//	(:Version {id, version, session, creation_time})
//	(:Version)-[:DEPENDS_ON {type, category, seq}]->(:Version)   dest -> source
//	(:Version)-[:HAS_PROPERTY]->(:Property {id, version, key, value, seq})
//	(:Key {originator, name, type})                               lookup-or-create lock
//	(:Counter {name: "seq", value})                               insertion order
//
// Identifiers are stored in their "%016x:%016x" text form; times as Unix
// nanoseconds. Uniqueness constraints on Object, Session, Version and Key
// are created on Open.
//
// # Critical Patterns
//
// Writes that read before they write take a node lock first by setting a
// throwaway property, then read. The lock is held until the managed
// transaction commits, which serializes version appends and
// lookup-or-create on the same key across processes.
package graphdb
