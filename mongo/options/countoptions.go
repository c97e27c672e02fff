// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

// CountOptions represents arguments that can be used to configure a
// CountDocuments operation.
type CountOptions struct {
	// A string or document that will be included in server logs, profiling logs, and currentOp queries to help trace
	// the operation.  The default is nil, which means that no comment will be included in the logs.
	Comment interface{}

	// The maximum number of documents to count. The default value is 0, which means that there is no limit and all
	// documents matching the filter will be counted.
	Limit *int64

	// The number of documents to skip before counting. The default value is 0.
	Skip *int64
}

// CountOptionsBuilder contains options to configure count operations. Each
// option can be set through setter functions. See documentation for each setter
// function for an explanation of the option.
type CountOptionsBuilder struct {
	Opts []func(*CountOptions) error
}

// Count creates a new CountOptions instance.
func Count() *CountOptionsBuilder {
	return &CountOptionsBuilder{}
}

// ArgsSetters returns a list of CountArgs setter functions.
func (co *CountOptionsBuilder) ArgsSetters() []func(*CountOptions) error {
	return co.Opts
}

// SetComment sets the value for the Comment field.
func (co *CountOptionsBuilder) SetComment(comment interface{}) *CountOptionsBuilder {
	co.Opts = append(co.Opts, func(args *CountOptions) error {
		args.Comment = comment

		return nil
	})

	return co
}

// SetLimit sets the value for the Limit field.
func (co *CountOptionsBuilder) SetLimit(i int64) *CountOptionsBuilder {
	co.Opts = append(co.Opts, func(args *CountOptions) error {
		args.Limit = &i

		return nil
	})

	return co
}

// SetSkip sets the value for the Skip field.
func (co *CountOptionsBuilder) SetSkip(i int64) *CountOptionsBuilder {
	co.Opts = append(co.Opts, func(args *CountOptions) error {
		args.Skip = &i

		return nil
	})

	return co
}
