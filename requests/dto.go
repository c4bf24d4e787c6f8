package requests

import (
	"github.com/brettbedarf/nstree"
)

// FixtureDTO is the YAML/JSON representation of a fixture file: a forest of
// node requests created under a common parent.
type FixtureDTO struct {
	Nodes []*NodeRequestDTO `json:"nodes" yaml:"nodes" validate:"required,dive,required"`
}

// NodeRequestDTO is the YAML/JSON representation of [nstree.NodeRequest]
type NodeRequestDTO struct {
	Name string          `json:"name" yaml:"name" validate:"required,max=255"`
	Type nstree.NodeType `json:"type" yaml:"type" validate:"required,oneof=dir file link"`
	// Optional UUID so links can refer to the node
	UUID *string `json:"uuid,omitempty" yaml:"uuid,omitempty" validate:"omitempty,uuid"`
	// Defaults to the configured DefaultWritable
	Writable *bool `json:"writable,omitempty" yaml:"writable,omitempty"`
	// File only
	Size     *int64  `json:"size,omitempty" yaml:"size,omitempty" validate:"omitempty,gte=0"`
	FileType *string `json:"file_type,omitempty" yaml:"file_type,omitempty" validate:"omitempty,oneof=text pdf java"`
	// Link only: UUID of the node the link refers to
	Target *string `json:"target,omitempty" yaml:"target,omitempty" validate:"omitempty,uuid"`
	// Dir only
	Children []*NodeRequestDTO `json:"children,omitempty" yaml:"children,omitempty" validate:"omitempty,dive,required"`
}
