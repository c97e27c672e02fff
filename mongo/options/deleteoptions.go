// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

// DeleteOptions represents arguments that can be used to configure Delete
// operations.
type DeleteOptions struct {
	// A string or document that will be included in server logs, profiling logs, and currentOp queries to help trace
	// the operation. The default value is nil, which means that no comment will be included in the logs.
	Comment interface{}

	// If true, this delete stops after the first error; if false, it continues attempting the remaining deletes.
	// The default value is true.
	Ordered *bool
}

// DeleteOptionsBuilder contains options to configure delete operations.
// Each option can be set through setter functions.
type DeleteOptionsBuilder struct {
	Opts []func(*DeleteOptions) error
}

// Delete creates a new DeleteOptions instance.
func Delete() *DeleteOptionsBuilder {
	return &DeleteOptionsBuilder{}
}

// ArgsSetters returns a list of DeleteOptions setter functions.
func (d *DeleteOptionsBuilder) ArgsSetters() []func(*DeleteOptions) error {
	return d.Opts
}

// SetComment sets the value for the Comment field.
func (d *DeleteOptionsBuilder) SetComment(comment interface{}) *DeleteOptionsBuilder {
	d.Opts = append(d.Opts, func(args *DeleteOptions) error {
		args.Comment = comment
		return nil
	})
	return d
}

// SetOrdered sets the value for the Ordered field.
func (d *DeleteOptionsBuilder) SetOrdered(ordered bool) *DeleteOptionsBuilder {
	d.Opts = append(d.Opts, func(args *DeleteOptions) error {
		args.Ordered = &ordered
		return nil
	})
	return d
}
