// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

// FindOptions represents arguments that can be used to configure a Find
// operation.
type FindOptions struct {
	// The maximum number of documents to return. The default value is 0, which means that there is no limit.
	Limit *int64

	// The number of documents to skip before adding documents to the result. The default value is 0.
	Skip *int64

	// A document specifying the order in which documents should be returned.
	Sort interface{}

	// The number of documents to return in each batch sent from the server. If 0, the server's own default is used.
	BatchSize *int32

	// A document describing which fields will be included in the documents returned. The default value is nil,
	// which means all fields will be included.
	Projection interface{}

	// The exclusive upper index bound for a scanned index. Min and Max are
	// index-bound hints, not filter predicates; the default value is nil.
	Max interface{}

	// The inclusive lower index bound for a scanned index. The default value is nil.
	Min interface{}
}

// FindOptionsBuilder contains options to configure find operations. Each
// option can be set through setter functions.
type FindOptionsBuilder struct {
	Opts []func(*FindOptions) error
}

// Find creates a new FindOptions instance.
func Find() *FindOptionsBuilder {
	return &FindOptionsBuilder{}
}

// ArgsSetters returns a list of FindOptions setter functions.
func (f *FindOptionsBuilder) ArgsSetters() []func(*FindOptions) error {
	return f.Opts
}

// SetLimit sets the value for the Limit field.
func (f *FindOptionsBuilder) SetLimit(i int64) *FindOptionsBuilder {
	f.Opts = append(f.Opts, func(args *FindOptions) error {
		args.Limit = &i
		return nil
	})
	return f
}

// SetSkip sets the value for the Skip field.
func (f *FindOptionsBuilder) SetSkip(i int64) *FindOptionsBuilder {
	f.Opts = append(f.Opts, func(args *FindOptions) error {
		args.Skip = &i
		return nil
	})
	return f
}

// SetSort sets the value for the Sort field.
func (f *FindOptionsBuilder) SetSort(sort interface{}) *FindOptionsBuilder {
	f.Opts = append(f.Opts, func(args *FindOptions) error {
		args.Sort = sort
		return nil
	})
	return f
}

// SetBatchSize sets the value for the BatchSize field.
func (f *FindOptionsBuilder) SetBatchSize(size int32) *FindOptionsBuilder {
	f.Opts = append(f.Opts, func(args *FindOptions) error {
		args.BatchSize = &size
		return nil
	})
	return f
}

// SetProjection sets the value for the Projection field.
func (f *FindOptionsBuilder) SetProjection(projection interface{}) *FindOptionsBuilder {
	f.Opts = append(f.Opts, func(args *FindOptions) error {
		args.Projection = projection
		return nil
	})
	return f
}

// SetMax sets the exclusive upper index bound.
func (f *FindOptionsBuilder) SetMax(max interface{}) *FindOptionsBuilder {
	f.Opts = append(f.Opts, func(args *FindOptions) error {
		args.Max = max
		return nil
	})
	return f
}

// SetMin sets the inclusive lower index bound.
func (f *FindOptionsBuilder) SetMin(min interface{}) *FindOptionsBuilder {
	f.Opts = append(f.Opts, func(args *FindOptions) error {
		args.Min = min
		return nil
	})
	return f
}
