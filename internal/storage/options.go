package storage

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DefaultOriginalsFolder is the conventional subfolder holding uploaded
// source files before any derived files are generated
const DefaultOriginalsFolder = "originals"

// Options is the resolved configuration a FolderManager works with.
// Folder names are relative to FileBasePath.
type Options struct {
	FileBasePath string           `mapstructure:"file_base_path"`
	Folder       string           `mapstructure:"folder"`
	FullPath     bool             `mapstructure:"full_path"`
	FromFolder   string           `mapstructure:"from_folder"`
	ToFolder     string           `mapstructure:"to_folder"`
	Originals    OriginalsOptions `mapstructure:"originals"`

	CreateToFolder       bool `mapstructure:"create_to_folder"`
	RemoveFromFolder     bool `mapstructure:"remove_from_folder"`
	RemoveOriginalFolder bool `mapstructure:"remove_original_folder"`

	// Mirror policy
	Override bool `mapstructure:"override"` // copy even when the target is newer
	Delete   bool `mapstructure:"delete"`   // drop target entries missing from the source

	// Enumeration filters used by ListFiles
	IgnoreDotFiles bool `mapstructure:"ignore_dot_files"`
	IgnoreVCS      bool `mapstructure:"ignore_vcs"`
	FilesOnly      bool `mapstructure:"files_only"`
}

// OriginalsOptions configures the originals subfolder
type OriginalsOptions struct {
	Folder string `mapstructure:"folder"`
}

// DefaultOptions returns options with the enumeration defaults applied
func DefaultOptions(fileBasePath string) Options {
	return Options{
		FileBasePath:   fileBasePath,
		Originals:      OriginalsOptions{Folder: DefaultOriginalsFolder},
		IgnoreDotFiles: true,
		IgnoreVCS:      true,
	}
}

// Overrides holds per-call option overrides. A nil field keeps the base value.
type Overrides struct {
	FileBasePath *string             `mapstructure:"file_base_path"`
	Folder       *string             `mapstructure:"folder"`
	FullPath     *bool               `mapstructure:"full_path"`
	FromFolder   *string             `mapstructure:"from_folder"`
	ToFolder     *string             `mapstructure:"to_folder"`
	Originals    *OriginalsOverrides `mapstructure:"originals"`

	CreateToFolder       *bool `mapstructure:"create_to_folder"`
	RemoveFromFolder     *bool `mapstructure:"remove_from_folder"`
	RemoveOriginalFolder *bool `mapstructure:"remove_original_folder"`

	Override *bool `mapstructure:"override"`
	Delete   *bool `mapstructure:"delete"`

	IgnoreDotFiles *bool `mapstructure:"ignore_dot_files"`
	IgnoreVCS      *bool `mapstructure:"ignore_vcs"`
	FilesOnly      *bool `mapstructure:"files_only"`
}

// OriginalsOverrides overrides OriginalsOptions
type OriginalsOverrides struct {
	Folder *string `mapstructure:"folder"`
}

// String returns a pointer to s, for building Overrides literals
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building Overrides literals
func Bool(b bool) *bool { return &b }

// Resolve merges override on top of base. The override wins on every field
// it sets; base is never modified.
func Resolve(base Options, override *Overrides) Options {
	resolved := base
	if override == nil {
		return resolved
	}

	setString(&resolved.FileBasePath, override.FileBasePath)
	setString(&resolved.Folder, override.Folder)
	setBool(&resolved.FullPath, override.FullPath)
	setString(&resolved.FromFolder, override.FromFolder)
	setString(&resolved.ToFolder, override.ToFolder)
	if override.Originals != nil {
		setString(&resolved.Originals.Folder, override.Originals.Folder)
	}

	setBool(&resolved.CreateToFolder, override.CreateToFolder)
	setBool(&resolved.RemoveFromFolder, override.RemoveFromFolder)
	setBool(&resolved.RemoveOriginalFolder, override.RemoveOriginalFolder)
	setBool(&resolved.Override, override.Override)
	setBool(&resolved.Delete, override.Delete)
	setBool(&resolved.IgnoreDotFiles, override.IgnoreDotFiles)
	setBool(&resolved.IgnoreVCS, override.IgnoreVCS)
	setBool(&resolved.FilesOnly, override.FilesOnly)

	return resolved
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// DecodeOverrides converts a loosely typed option map into Overrides.
// Dotted keys such as "originals.folder" are accepted alongside nested maps,
// scalar values are weakly converted ("true", 1) and unknown keys are
// rejected with ErrUsage.
func DecodeOverrides(raw map[string]any) (*Overrides, error) {
	var overrides Overrides
	if len(raw) == 0 {
		return &overrides, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &overrides,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, usageError("failed to build option decoder: %v", err)
	}

	if err := decoder.Decode(nestDottedKeys(raw)); err != nil {
		return nil, usageError("invalid options: %v", err)
	}

	return &overrides, nil
}

// nestDottedKeys turns {"a.b": v} into {"a": {"b": v}}
func nestDottedKeys(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if nested, ok := value.(map[string]any); ok {
			if existing, ok := node[leaf].(map[string]any); ok {
				for k, v := range nestDottedKeys(nested) {
					existing[k] = v
				}
				continue
			}
			value = nestDottedKeys(nested)
		}
		node[leaf] = value
	}
	return out
}

// lookup returns the value stored under an option key, or false for an
// unknown key
func (o Options) lookup(name string) (any, bool) {
	switch name {
	case "file_base_path":
		return o.FileBasePath, true
	case "folder":
		return o.Folder, true
	case "full_path":
		return o.FullPath, true
	case "from_folder":
		return o.FromFolder, true
	case "to_folder":
		return o.ToFolder, true
	case "originals":
		return o.Originals, true
	case "originals.folder":
		return o.Originals.Folder, true
	case "create_to_folder":
		return o.CreateToFolder, true
	case "remove_from_folder":
		return o.RemoveFromFolder, true
	case "remove_original_folder":
		return o.RemoveOriginalFolder, true
	case "override":
		return o.Override, true
	case "delete":
		return o.Delete, true
	case "ignore_dot_files":
		return o.IgnoreDotFiles, true
	case "ignore_vcs":
		return o.IgnoreVCS, true
	case "files_only":
		return o.FilesOnly, true
	default:
		return nil, false
	}
}
