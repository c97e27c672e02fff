// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

// UpdateOptions represents arguments that can be used to configure Update
// operations.
type UpdateOptions struct {
	// If true, a new document will be inserted if none of the filter's documents match existing ones in the
	// collection. The default value is false.
	Upsert *bool

	// A string or document that will be included in server logs, profiling logs, and currentOp queries to help trace
	// the operation. The default value is nil, which means that no comment will be included in the logs.
	Comment interface{}
}

// UpdateOptionsBuilder contains options to configure update operations.
// Each option can be set through setter functions.
type UpdateOptionsBuilder struct {
	Opts []func(*UpdateOptions) error
}

// Update creates a new UpdateOptions instance.
func Update() *UpdateOptionsBuilder {
	return &UpdateOptionsBuilder{}
}

// ArgsSetters returns a list of UpdateOptions setter functions.
func (u *UpdateOptionsBuilder) ArgsSetters() []func(*UpdateOptions) error {
	return u.Opts
}

// SetUpsert sets the value for the Upsert field.
func (u *UpdateOptionsBuilder) SetUpsert(b bool) *UpdateOptionsBuilder {
	u.Opts = append(u.Opts, func(args *UpdateOptions) error {
		args.Upsert = &b
		return nil
	})
	return u
}

// SetComment sets the value for the Comment field.
func (u *UpdateOptionsBuilder) SetComment(comment interface{}) *UpdateOptionsBuilder {
	u.Opts = append(u.Opts, func(args *UpdateOptions) error {
		args.Comment = comment
		return nil
	})
	return u
}
