package records

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// fixtureFile is the on-disk layout of a records fixture.
type fixtureFile struct {
	Students   []*StudentRecord   `yaml:"alumnos"`
	Professors []*ProfessorRecord `yaml:"profesores"`
}

// FileProvider serves records from a YAML fixture. It is read-only after load.
type FileProvider struct {
	students   map[string]*StudentRecord
	professors map[string]*ProfessorRecord
}

var _ Provider = (*FileProvider)(nil)

// LoadFileProvider reads a fixture with top-level "alumnos" and "profesores" lists.
func LoadFileProvider(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, saeserrors.ConfigError(fmt.Sprintf("read records fixture %s", path), err)
	}
	return ParseFixtures(data)
}

// ParseFixtures builds a FileProvider from YAML bytes.
func ParseFixtures(data []byte) (*FileProvider, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, saeserrors.ConfigError("parse records fixture", err)
	}

	p := &FileProvider{
		students:   make(map[string]*StudentRecord, len(f.Students)),
		professors: make(map[string]*ProfessorRecord, len(f.Professors)),
	}
	for _, s := range f.Students {
		if s == nil || s.Boleta == "" {
			return nil, saeserrors.ConfigError("records fixture: alumno without boleta", nil)
		}
		for i := range s.Enrolled {
			SortSlots(s.Enrolled[i].Schedule)
		}
		p.students[s.Boleta] = s
	}
	for _, pr := range f.Professors {
		if pr == nil || pr.ID == "" {
			return nil, saeserrors.ConfigError("records fixture: profesor without id", nil)
		}
		p.professors[pr.ID] = pr
	}
	return p, nil
}

// Lookup implements Provider.
func (p *FileProvider) Lookup(_ context.Context, userType UserType, id string) (*Record, error) {
	switch userType {
	case Student:
		if s, ok := p.students[id]; ok {
			return &Record{Type: Student, Student: s}, nil
		}
	case Professor:
		if pr, ok := p.professors[id]; ok {
			return &Record{Type: Professor, Professor: pr}, nil
		}
	}
	return nil, notFound(userType, id)
}

// Len returns the number of loaded users.
func (p *FileProvider) Len() int { return len(p.students) + len(p.professors) }

// Close implements Provider.
func (p *FileProvider) Close() error { return nil }
