package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/video"
)

type (
	DB struct {
		job *jobTable
	}

	jobTable struct {
		sync.RWMutex
		table map[string]*video.Job
	}
)

func Open() *DB {
	return &DB{
		job: &jobTable{table: make(map[string]*video.Job)},
	}
}
