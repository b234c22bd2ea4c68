// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// Config holds the state object configuration and the shader table
// alignments.
type Config struct {
	PayloadSize    uint32
	AttributeSize  uint32
	RecursionDepth uint32

	RecordAlignment uint64
	TableAlignment  uint64
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		PayloadSize:     DefaultPayloadSize,
		AttributeSize:   DefaultAttributeSize,
		RecursionDepth:  gpucore.MaxTraceRecursionDepth,
		RecordAlignment: gpucore.ShaderRecordAlignment,
		TableAlignment:  gpucore.ShaderTableAlignment,
	}
}

func (c Config) validate() error {
	if c.RecursionDepth == 0 || c.RecursionDepth > gpucore.MaxTraceRecursionDepth {
		return fmt.Errorf("%w: %d", ErrRecursionDepth, c.RecursionDepth)
	}
	for _, a := range []uint64{c.RecordAlignment, c.TableAlignment} {
		if a == 0 || a&(a-1) != 0 {
			return fmt.Errorf("%w: %d", ErrBadAlignment, a)
		}
	}
	return nil
}

// Option configures a Pipeline.
type Option func(*Config)

// WithShaderConfig sets the maximum payload and attribute sizes in bytes.
func WithShaderConfig(payload, attributes uint32) Option {
	return func(c *Config) {
		c.PayloadSize = payload
		c.AttributeSize = attributes
	}
}

// WithRecursionDepth sets the maximum trace recursion depth.
func WithRecursionDepth(depth uint32) Option {
	return func(c *Config) {
		c.RecursionDepth = depth
	}
}

// WithTableAlignment sets the shader record and shader table alignments.
// Both must be powers of two.
func WithTableAlignment(record, table uint64) Option {
	return func(c *Config) {
		c.RecordAlignment = record
		c.TableAlignment = table
	}
}

// Pipeline is a ray tracing state object with its root signatures and
// shader table.
type Pipeline struct {
	device gpucore.Device
	config Config

	Global      gpucore.RootSignatureID
	Local       gpucore.RootSignatureID
	StateObject gpucore.StateObjectID
	Table       *ShaderTable
}

// New creates the root signatures, the state object built from lib and the
// shader table. Any missing export is a hard failure.
func New(device gpucore.Device, lib *Library, opts ...Option) (*Pipeline, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if lib == nil || len(lib.Bytecode) == 0 {
		return nil, ErrEmptyLibrary
	}

	p := &Pipeline{device: device, config: cfg}
	var err error
	if p.Global, p.Local, err = createRootSignatures(device); err != nil {
		return nil, err
	}
	if p.StateObject, err = createStateObject(device, lib, p.Global, p.Local, cfg); err != nil {
		p.Release()
		return nil, err
	}
	layout := ComputeTableLayout(gpucore.ShaderIdentifierSize, HitGroupLocalBytes,
		cfg.RecordAlignment, cfg.TableAlignment)
	if p.Table, err = NewShaderTable(device, p.StateObject, layout); err != nil {
		p.Release()
		return nil, err
	}

	slogger().Info("pipeline: created", "library", lib.Name,
		"payload", cfg.PayloadSize, "attributes", cfg.AttributeSize, "recursion", cfg.RecursionDepth)
	return p, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.config }

// Release destroys the shader table, state object and root signatures.
func (p *Pipeline) Release() {
	if p.Table != nil {
		p.Table.Release()
		p.Table = nil
	}
	if p.StateObject != gpucore.InvalidID {
		p.device.DestroyStateObject(p.StateObject)
		p.StateObject = gpucore.InvalidID
	}
	if p.Local != gpucore.InvalidID {
		p.device.DestroyRootSignature(p.Local)
		p.Local = gpucore.InvalidID
	}
	if p.Global != gpucore.InvalidID {
		p.device.DestroyRootSignature(p.Global)
		p.Global = gpucore.InvalidID
	}
}
