package loader

import (
	"fmt"
	"io"
	"os"

	"adcrew/internal"

	"gopkg.in/yaml.v3"
)

type ActorsFile struct {
	Actors []internal.Actor `yaml:"actors"`
}

func LoadActors(path string) ([]internal.Actor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	actors, err := ParseActors(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return actors, nil
}

func ParseActors(r io.Reader) ([]internal.Actor, error) {
	var af ActorsFile
	if err := decode(r, &af); err != nil {
		return nil, err
	}
	if len(af.Actors) == 0 {
		return nil, fmt.Errorf("no actors defined")
	}
	return af.Actors, nil
}

// decode rejects unknown keys so a typo in a definition file is not ignored.
func decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(v)
}
