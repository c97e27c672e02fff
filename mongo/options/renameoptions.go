// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

// RenameOptions represents arguments that can be used to configure a Rename
// operation.
type RenameOptions struct {
	// If true, an existing collection with the target name is dropped before the rename. The default value is false,
	// which makes the rename fail if the target name is already taken.
	DropTarget *bool
}

// RenameOptionsBuilder contains options to configure rename operations.
// Each option can be set through setter functions.
type RenameOptionsBuilder struct {
	Opts []func(*RenameOptions) error
}

// Rename creates a new RenameOptions instance.
func Rename() *RenameOptionsBuilder {
	return &RenameOptionsBuilder{}
}

// ArgsSetters returns a list of RenameOptions setter functions.
func (r *RenameOptionsBuilder) ArgsSetters() []func(*RenameOptions) error {
	return r.Opts
}

// SetDropTarget sets the value for the DropTarget field.
func (r *RenameOptionsBuilder) SetDropTarget(b bool) *RenameOptionsBuilder {
	r.Opts = append(r.Opts, func(args *RenameOptions) error {
		args.DropTarget = &b
		return nil
	})
	return r
}
