package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/nstree"
	"github.com/brettbedarf/nstree/config"
	"github.com/brettbedarf/nstree/internal/util"
)

// Format is the encoding of a fixture document
type Format string

const (
	YAMLFormat Format = "yaml"
	JSONFormat Format = "json"
)

// ErrInvalidFixture is wrapped by every structural problem found in a fixture
var ErrInvalidFixture = errors.New("invalid fixture")

var validate = validator.New()

// FormatFromPath picks the fixture format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLFormat, nil
	case ".json":
		return JSONFormat, nil
	default:
		return "", fmt.Errorf("unknown fixture file extension: %s", path)
	}
}

// LoadFixtureFile reads and converts the fixture at path.
func LoadFixtureFile(path string, cfg *config.Config) ([]*nstree.NodeRequest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalFixture(data, format, cfg)
}

// UnmarshalFixture decodes, validates and converts a fixture document. A nil
// cfg uses the defaults.
func UnmarshalFixture(data []byte, format Format, cfg *config.Config) ([]*nstree.NodeRequest, error) {
	logger := util.GetLogger("Requests")

	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	var dto FixtureDTO
	switch format {
	case YAMLFormat:
		if err := yaml.Unmarshal(data, &dto); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fixture: %w", err)
		}
	case JSONFormat:
		if err := json.Unmarshal(data, &dto); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fixture: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown fixture format: %q", format)
	}
	if err := validate.Struct(&dto); err != nil {
		return nil, formatValidationError(err)
	}

	reqs := make([]*nstree.NodeRequest, 0, len(dto.Nodes))
	for _, n := range dto.Nodes {
		req, err := convertNodeDTO(n, cfg)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	logger.Debug().Int("count", len(reqs)).Msg("Loaded fixture")
	return reqs, nil
}

// convertNodeDTO applies defaults and checks the per-type field rules that
// struct tags cannot express.
func convertNodeDTO(dto *NodeRequestDTO, cfg *config.Config) (*nstree.NodeRequest, error) {
	req := &nstree.NodeRequest{
		Name:     dto.Name,
		Type:     dto.Type,
		Writable: util.ValueOrDefault(dto.Writable, cfg.DefaultWritable),
	}
	if dto.UUID != nil {
		// validated by the uuid tag
		req.UUID = uuid.MustParse(*dto.UUID)
	}

	if dto.Type != nstree.FileNodeType && (dto.Size != nil || dto.FileType != nil) {
		return nil, fmt.Errorf("%w: %q: size and file_type apply to files only", ErrInvalidFixture, dto.Name)
	}
	if dto.Type != nstree.DirNodeType && len(dto.Children) > 0 {
		return nil, fmt.Errorf("%w: %q: only directories have children", ErrInvalidFixture, dto.Name)
	}
	if (dto.Type == nstree.LinkNodeType) != (dto.Target != nil) {
		return nil, fmt.Errorf("%w: %q: links, and only links, require a target", ErrInvalidFixture, dto.Name)
	}

	switch dto.Type {
	case nstree.FileNodeType:
		req.Size = util.ValueOrDefault(dto.Size, 0)
		req.FileType = nstree.FileType(util.ValueOrDefault(dto.FileType, string(nstree.TextFileType)))
	case nstree.LinkNodeType:
		req.Target = uuid.MustParse(*dto.Target)
	case nstree.DirNodeType:
		for _, c := range dto.Children {
			child, err := convertNodeDTO(c, cfg)
			if err != nil {
				return nil, err
			}
			req.Children = append(req.Children, child)
		}
	}
	return req, nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%w: %s: validation failed on '%s' tag (value: %v)",
			ErrInvalidFixture, e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
