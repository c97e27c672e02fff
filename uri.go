// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongolet

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultPort = "27017"

// URI is the subset of a mongodb:// connection string this core understands:
// host, port, default database, and the compressors query parameter.
// Everything else (auth, TLS, replica set options, read preference, ...) is
// out of scope and ignored if present.
type URI struct {
	Host        string
	Port        string
	DefaultDB   string
	Compressors []string
}

// Addr formats the host:port pair for net.Dial.
func (u URI) Addr() string {
	return fmt.Sprintf("%s:%s", u.Host, u.Port)
}

// ParseURI parses a mongodb:// connection string, reading only host, port,
// default database (the path component) and a compressors query parameter.
func ParseURI(raw string) (URI, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return URI{}, fmt.Errorf("mongolet: invalid uri: %w", err)
	}
	if parsed.Scheme != "mongodb" {
		return URI{}, fmt.Errorf("mongolet: invalid uri: unsupported scheme %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = defaultPort
	}

	u := URI{
		Host: host,
		Port: port,
		DefaultDB: strings.TrimPrefix(parsed.Path, "/"),
	}

	if c := parsed.Query().Get("compressors"); c != "" {
		for _, name := range strings.Split(c, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				u.Compressors = append(u.Compressors, name)
			}
		}
	}

	return u, nil
}
