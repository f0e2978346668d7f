package repositoryimpl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/tasktracker/internal/task"
)

// Codec converts between the task list and one file format.
type Codec interface {
	Name() string
	Marshal(tasks []*task.Task) ([]byte, error)
	// Unmarshal rejects unknown keys so that a save never drops data it did
	// not understand. Blank input decodes to an empty list.
	Unmarshal(data []byte) ([]*task.Task, error)
}

// CodecFor picks the codec from the file extension.
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONCodec{}, nil
	case ".yaml", ".yml":
		return YAMLCodec{}, nil
	case ".toml":
		return TOMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported task file extension %q (want .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// CodecNames lists the names accepted by CodecByName.
var CodecNames = []string{"json", "yaml", "toml"}

// CodecByName picks a codec regardless of the file extension.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	case "toml":
		return TOMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported task file format %q (want %s)", name, strings.Join(CodecNames, ", "))
	}
}

func blank(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}

func nonNil(tasks []*task.Task) []*task.Task {
	if tasks == nil {
		return []*task.Task{}
	}
	return tasks
}

// JSONCodec writes a top-level array with four-space indentation.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(tasks []*task.Task) ([]byte, error) {
	data, err := json.MarshalIndent(nonNil(tasks), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func (JSONCodec) Unmarshal(data []byte) ([]*task.Task, error) {
	if blank(data) {
		return []*task.Task{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var tasks []*task.Task
	if err := dec.Decode(&tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to unmarshal JSON: trailing data after task list")
	}
	return nonNil(tasks), nil
}

// YAMLCodec writes a top-level sequence.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Marshal(tasks []*task.Task) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(nonNil(tasks)); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Unmarshal(data []byte) ([]*task.Task, error) {
	if blank(data) {
		return []*task.Task{}, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var tasks []*task.Task
	if err := dec.Decode(&tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return nonNil(tasks), nil
}

// TOMLCodec writes the list as a [[tasks]] array of tables, since a TOML
// document must be a table.
type TOMLCodec struct{}

type tomlDocument struct {
	Tasks []*task.Task `toml:"tasks"`
}

func (TOMLCodec) Name() string { return "toml" }

func (TOMLCodec) Marshal(tasks []*task.Task) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tomlDocument{Tasks: nonNil(tasks)}); err != nil {
		return nil, fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return buf.Bytes(), nil
}

func (TOMLCodec) Unmarshal(data []byte) ([]*task.Task, error) {
	if blank(data) {
		return []*task.Task{}, nil
	}
	var doc tomlDocument
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("failed to unmarshal TOML: unknown keys %s", strings.Join(keys, ", "))
	}
	return nonNil(doc.Tasks), nil
}
