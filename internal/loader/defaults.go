package loader

import (
	"bytes"
	_ "embed"

	"adcrew/internal"
)

// The bundled crew: a human-input task that captures the market followed by
// trend, performance, ad-library and creative tasks.
var (
	//go:embed defaults/actors.yaml
	defaultActors []byte
	//go:embed defaults/tasks.yaml
	defaultTasks []byte
)

func DefaultActors() ([]internal.Actor, error) {
	return ParseActors(bytes.NewReader(defaultActors))
}

func DefaultTasks() ([]internal.Task, error) {
	return ParseTasks(bytes.NewReader(defaultTasks))
}
