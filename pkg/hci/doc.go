// Package hci provides a declarative codec for vendor-specific HCI packet
// parameters. A packet's layout is an ordered schema of named field codecs
// walked by a single generic encode/decode routine, so adding a packet type
// means declaring its schema, not writing serialization code.
package hci
