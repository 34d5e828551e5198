package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/aligator/fattree"
	"gopkg.in/yaml.v2"
)

const (
	outputTree = "tree"
	outputYAML = "yaml"

	indent = "    "
)

// printTree prints one line per entry, indented by depth.
// The volume label is printed as a header and directories get a trailing backslash.
func printTree(w io.Writer, fs *fattree.Fs) error {
	return fs.Walk(func(depth int, entry *fattree.Entry) error {
		if entry.Kind == fattree.KindVolumeLabel {
			_, err := fmt.Fprintf(w, "%s:\n\n", entry.Name())
			return err
		}

		line := strings.Repeat(indent, depth) + entry.Name()
		if entry.HasSeparator() {
			line += `\`
		}

		_, err := fmt.Fprintln(w, line)
		return err
	})
}

type node struct {
	Name     string  `yaml:"name"`
	Kind     string  `yaml:"kind"`
	Size     int64   `yaml:"size,omitempty"`
	Children []*node `yaml:"children,omitempty"`
}

// buildNodes collects the walk into a nested structure.
func buildNodes(fs *fattree.Fs) ([]*node, error) {
	root := &node{}
	parents := []*node{root}

	err := fs.Walk(func(depth int, entry *fattree.Entry) error {
		// Directories are passed before their content, so the parent is always known.
		parents = parents[:depth+1]
		n := &node{
			Name: entry.Name(),
			Kind: entry.Kind.String(),
			Size: entry.Size(),
		}

		parent := parents[depth]
		parent.Children = append(parent.Children, n)
		if entry.Kind == fattree.KindDirectory {
			parents = append(parents, n)
		}
		return nil
	})

	return root.Children, err
}

func printYAML(w io.Writer, fs *fattree.Fs) error {
	nodes, err := buildNodes(fs)
	if err != nil {
		return err
	}

	raw, err := yaml.Marshal(nodes)
	if err != nil {
		return err
	}

	_, err = w.Write(raw)
	return err
}

func printOutput(w io.Writer, fs *fattree.Fs, output string) error {
	switch output {
	case outputTree:
		return printTree(w, fs)
	case outputYAML:
		return printYAML(w, fs)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
