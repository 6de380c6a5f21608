package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/pggraphql/internal/schema"
)

// LoadDir builds the CUE package in dir and compiles it into a Schema.
func LoadDir(dir string, opts ...schema.Option) (*schema.Schema, error) {
	v, err := BuildDir(dir)
	if err != nil {
		return nil, err
	}
	return CompileSchema(v, opts...)
}

// BuildDir loads the CUE instance rooted at dir without compiling it.
func BuildDir(dir string) (cue.Value, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fromCUE(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Validate(); err != nil {
		return cue.Value{}, fromCUE(err)
	}
	return v, nil
}

// LoadFile compiles a single CUE file into a Schema.
func LoadFile(path string, opts ...schema.Option) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	return CompileSchema(v, opts...)
}

// Load compiles path as a directory or a single file.
func Load(path string, opts ...schema.Option) (*schema.Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema path: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path, opts...)
	}
	return LoadFile(path, opts...)
}
