/*
Package resolver implements the Node Resolver: a raft.ServerAddressProvider
that turns a Raft server id (a node id) into a dialable network address by
asking the meta client, instead of requiring every partition's Raft
configuration to carry up-to-date addresses.

pservice.New builds one resolver per node and hands it to every
pkg/raftbinding group's transport.
*/
package resolver
