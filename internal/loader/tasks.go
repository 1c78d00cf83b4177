package loader

import (
	"fmt"
	"io"
	"os"

	"adcrew/internal"
)

type TasksFile struct {
	Tasks []internal.Task `yaml:"tasks"`
}

func LoadTasks(path string) ([]internal.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tasks, err := ParseTasks(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

func ParseTasks(r io.Reader) ([]internal.Task, error) {
	var tf TasksFile
	if err := decode(r, &tf); err != nil {
		return nil, err
	}
	if len(tf.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks defined")
	}
	return tf.Tasks, nil
}
