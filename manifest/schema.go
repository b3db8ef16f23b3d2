package manifest

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaMu  sync.Mutex
	schemaCtx *cue.Context
	schemaDef cue.Value
)

// loadSchema compiles the embedded schema once. Callers hold schemaMu.
func loadSchema() (cue.Value, error) {
	if schemaCtx != nil {
		return schemaDef, nil
	}
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("config schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("config schema: %w", err)
	}
	schemaCtx, schemaDef = ctx, def
	return def, nil
}

// Validate checks decoded rpal.toml content against the schema.
func Validate(raw map[string]any) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	def, err := loadSchema()
	if err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	v := def.Unify(schemaCtx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %s", cueerrors.Details(err, nil))
	}
	return nil
}
