package hash

import "github.com/chazu/rpal/compiler"

// ---------------------------------------------------------------------------
// Frozen tag bytes for the tree serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every cached result keyed by a tree hash.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing tree hashes.
const HashVersion byte = 1

// Node kind tags.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Leaves
	TagIdentifier byte = 0x01
	TagInteger    byte = 0x02
	TagString     byte = 0x03
	TagTrue       byte = 0x04
	TagFalse      byte = 0x05
	TagNil        byte = 0x06
	TagDummy      byte = 0x07

	// Definitions and binding forms
	TagLet       byte = 0x10
	TagWhere     byte = 0x11
	TagWithin    byte = 0x12
	TagFcnForm   byte = 0x13
	TagSimultDef byte = 0x14
	TagRec       byte = 0x15
	TagAt        byte = 0x16
	TagParen     byte = 0x17
	TagLambda    byte = 0x18
	TagGamma     byte = 0x19
	TagEqual     byte = 0x1A
	TagComma     byte = 0x1B
	TagTau       byte = 0x1C
	TagCond      byte = 0x1D
	TagYStar     byte = 0x1E

	// Operators
	TagAug   byte = 0x30
	TagOr    byte = 0x31
	TagAnd   byte = 0x32
	TagNot   byte = 0x33
	TagGr    byte = 0x34
	TagGe    byte = 0x35
	TagLs    byte = 0x36
	TagLe    byte = 0x37
	TagEq    byte = 0x38
	TagNe    byte = 0x39
	TagPlus  byte = 0x3A
	TagMinus byte = 0x3B
	TagNeg   byte = 0x3C
	TagMult  byte = 0x3D
	TagDiv   byte = 0x3E
	TagExp   byte = 0x3F
)

// kindTags maps every node kind to its frozen tag.
var kindTags = map[compiler.Kind]byte{
	compiler.KindIdentifier:  TagIdentifier,
	compiler.KindInteger:     TagInteger,
	compiler.KindString:      TagString,
	compiler.KindTrue:        TagTrue,
	compiler.KindFalse:       TagFalse,
	compiler.KindNil:         TagNil,
	compiler.KindDummy:       TagDummy,
	compiler.KindLet:         TagLet,
	compiler.KindWhere:       TagWhere,
	compiler.KindWithin:      TagWithin,
	compiler.KindFcnForm:     TagFcnForm,
	compiler.KindSimultDef:   TagSimultDef,
	compiler.KindRec:         TagRec,
	compiler.KindAt:          TagAt,
	compiler.KindParen:       TagParen,
	compiler.KindLambda:      TagLambda,
	compiler.KindGamma:       TagGamma,
	compiler.KindEqual:       TagEqual,
	compiler.KindComma:       TagComma,
	compiler.KindTau:         TagTau,
	compiler.KindConditional: TagCond,
	compiler.KindYStar:       TagYStar,
	compiler.KindAug:         TagAug,
	compiler.KindOr:          TagOr,
	compiler.KindAnd:         TagAnd,
	compiler.KindNot:         TagNot,
	compiler.KindGr:          TagGr,
	compiler.KindGe:          TagGe,
	compiler.KindLs:          TagLs,
	compiler.KindLe:          TagLe,
	compiler.KindEq:          TagEq,
	compiler.KindNe:          TagNe,
	compiler.KindPlus:        TagPlus,
	compiler.KindMinus:       TagMinus,
	compiler.KindNeg:         TagNeg,
	compiler.KindMult:        TagMult,
	compiler.KindDiv:         TagDiv,
	compiler.KindExp:         TagExp,
}
