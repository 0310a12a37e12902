// Package protocol defines the producer command vocabulary and its wire form.
//
// Each command a producer can send to a tree builder is a distinct type
// implementing [Command]. Commands travel as JSON Lines, one object per line
// with an "op" discriminator:
//
//	{"op":"new","label":"reduce s(0) + 0"}
//	{"op":"add","parent":"current","id":"r","label":"rule: plus-zero","comment":true}
//	{"op":"subroot","id":"r"}
//	{"op":"add","label":"s(0)"}
//	{"op":"finish"}
//
// Operations:
//
//	new       NewTree{Label}
//	finish    FinishTree{}
//	push      PushScope{}
//	pop       PopScope{}
//	subroot   SetSubroot{ID}
//	add       AddChild{Parent, ID, Label, Comment, Properties}
//	comment   AddComment{Parent, ID, Label, Payload, Properties}
//	remove    RemoveLastChild{Parent}
//	save      SaveNodeCount{}
//	restore   RestoreNodeCount{Commit}
//	ignore    ToggleIgnore{On}
//
// A missing or empty parent means the builder's insertion cursor.
//
// [Reader] decodes a stream and reports malformed lines as
// [errors.LineError] values wrapping an INVALID_COMMAND error, so callers
// can log and skip them. [Apply] runs a decoded command against a builder.
package protocol
