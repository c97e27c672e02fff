// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wire

import (
	"github.com/mongolet/mongolet"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// stripField returns a copy of doc with the named top-level field removed,
// preserving the order of the remaining fields. The stripped field's
// documents travel as Type-1 sections and take its place on the wire.
func stripField(doc bson.Raw, name string) (bson.Raw, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, err
	}

	found := false
	out := bson.D{}
	for _, elem := range elems {
		if elem.Key() == name {
			found = true
			continue
		}
		val, err := elem.ValueErr()
		if err != nil {
			return nil, err
		}
		out = append(out, bson.E{Key: elem.Key(), Value: val})
	}
	if !found {
		return doc, nil
	}
	return bson.Marshal(out)
}

// mergeSequences reconstructs the document that decode_message hands back
// to the caller: body's own fields in their original order, with each
// Document Sequence attached under its identifier as a list. A sequence
// whose identifier already names a list field in body extends that list; a
// non-list field with a clashing name is a ProtocolError.
func mergeSequences(body bson.Raw, order []string, seqs map[string][]bson.Raw) (bson.Raw, error) {
	if len(seqs) == 0 {
		return body, nil
	}

	elems, err := body.Elements()
	if err != nil {
		return nil, err
	}

	consumed := make(map[string]bool, len(seqs))
	out := bson.D{}

	for _, elem := range elems {
		key := elem.Key()
		docs, isSeq := seqs[key]
		if !isSeq {
			val, err := elem.ValueErr()
			if err != nil {
				return nil, err
			}
			out = append(out, bson.E{Key: key, Value: val})
			continue
		}

		val, err := elem.ValueErr()
		if err != nil {
			return nil, err
		}
		if val.Type != bsontype.Array {
			return nil, mongolet.NewProtocolError("document-sequence identifier \"" + key + "\" clashes with a non-list body field")
		}
		existing := val.Array()
		existingDocs, err := arrayAsDocuments(existing)
		if err != nil {
			return nil, err
		}

		merged := append(existingDocs, docs...)
		out = append(out, bson.E{Key: key, Value: docsToArray(merged)})
		consumed[key] = true
	}

	for _, identifier := range order {
		if consumed[identifier] {
			continue
		}
		out = append(out, bson.E{Key: identifier, Value: docsToArray(seqs[identifier])})
	}

	return bson.Marshal(out)
}

func arrayAsDocuments(arr bson.Raw) ([]bson.Raw, error) {
	elems, err := arr.Elements()
	if err != nil {
		return nil, err
	}
	docs := make([]bson.Raw, 0, len(elems))
	for _, elem := range elems {
		val, err := elem.ValueErr()
		if err != nil {
			return nil, err
		}
		if val.Type != bsontype.EmbeddedDocument {
			return nil, mongolet.NewProtocolError("document-sequence list contains a non-document element")
		}
		doc := val.Document()
		docs = append(docs, doc)
	}
	return docs, nil
}

func docsToArray(docs []bson.Raw) bson.A {
	arr := make(bson.A, len(docs))
	for i, d := range docs {
		arr[i] = d
	}
	return arr
}
