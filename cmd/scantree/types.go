package main

import "github.com/jward/scantree"

// CLIDuplicate is the JSON shape for one duplicate group.
type CLIDuplicate struct {
	SHA1  string   `json:"sha1"`
	Count int      `json:"count"`
	Paths []string `json:"paths"`
}

// duplicateToCLI converts an index duplicate group to its JSON shape.
func duplicateToCLI(d scantree.Duplicate) CLIDuplicate {
	return CLIDuplicate{
		SHA1:  d.SHA1,
		Count: d.Count,
		Paths: d.Paths,
	}
}
