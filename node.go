package nstree

// NodeInfo provides read-only access to node information for external consumers
type NodeInfo interface {
	// Name returns the node's name (last path component)
	Name() string

	// NodeID returns the arena identifier of the node within its tree
	NodeID() uint64

	// AbsolutePath renders the path from the node's root, i.e. /Alpha/Bravo/file1.txt
	AbsolutePath() string

	// IsTerminated returns true once the node has been terminated
	IsTerminated() bool
}

// NodeType valid types are DirNodeType "dir", FileNodeType "file" and LinkNodeType "link"
type NodeType string

const (
	DirNodeType  NodeType = "dir"
	FileNodeType NodeType = "file"
	LinkNodeType NodeType = "link"
)

// FileType identifies the content kind of a file and the extension it is shown with
type FileType string

const (
	TextFileType FileType = "text"
	PDFFileType  FileType = "pdf"
	JavaFileType FileType = "java"
)

// Extension returns the extension used when rendering paths of files of this type
func (t FileType) Extension() string {
	switch t {
	case TextFileType:
		return "txt"
	case PDFFileType:
		return "pdf"
	case JavaFileType:
		return "java"
	default:
		return ""
	}
}

// IsValid reports whether t is one of the known file types
func (t FileType) IsValid() bool {
	return t.Extension() != ""
}
