package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// MemFS creates an in-memory filesystem for testing.
func MemFS() afero.Fs {
	return afero.NewMemMapFs()
}

// WriteFile writes content to a file in the given filesystem.
func WriteFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, fs, filepath.Join(root, name), content)
	}
}

// SceneObject describes one object of a generated scene document.
type SceneObject struct {
	ID       int64
	Name     string
	ParentID int64
	// Scripts lists guids attached to the object as script components.
	Scripts []string
}

// SceneDocument renders objects as a serialized scene document in the layout
// the editor writes: a GameObject block followed by its Transform block, plus
// one MonoBehaviour block per attached script.
func SceneDocument(objects ...SceneObject) string {
	var b strings.Builder
	b.WriteString("%YAML 1.1\n%TAG !u! tag:unity3d.com,2011:\n")
	for i, obj := range objects {
		goID := 100000 + int64(i)
		fmt.Fprintf(&b, "--- !u!1 &%d\n", goID)
		b.WriteString("GameObject:\n  m_ObjectHideFlags: 0\n  serializedVersion: 6\n  m_Component:\n")
		fmt.Fprintf(&b, "  - component: {fileID: %d}\n", obj.ID)
		for j := range obj.Scripts {
			fmt.Fprintf(&b, "  - component: {fileID: %d}\n", goID*100+int64(j))
		}
		fmt.Fprintf(&b, "  m_Layer: 0\n  m_Name: %s\n  m_IsActive: 1\n", obj.Name)

		fmt.Fprintf(&b, "--- !u!4 &%d\n", obj.ID)
		b.WriteString("Transform:\n  m_ObjectHideFlags: 0\n")
		fmt.Fprintf(&b, "  m_GameObject: {fileID: %d}\n", goID)
		b.WriteString("  m_LocalRotation: {x: 0, y: 0, z: 0, w: 1}\n  m_Children: []\n")
		fmt.Fprintf(&b, "  m_Father: {fileID: %d}\n", obj.ParentID)

		for j, guid := range obj.Scripts {
			fmt.Fprintf(&b, "--- !u!114 &%d\n", goID*100+int64(j))
			b.WriteString("MonoBehaviour:\n")
			fmt.Fprintf(&b, "  m_GameObject: {fileID: %d}\n", goID)
			b.WriteString("  m_Enabled: 1\n")
			fmt.Fprintf(&b, "  m_Script: {fileID: 11500000, guid: %s, type: 3}\n", guid)
			b.WriteString("  m_Name: \n")
		}
	}
	return b.String()
}

// MetaFile renders the sidecar metadata of an asset with the given guid.
func MetaFile(guid string) string {
	return "fileFormatVersion: 2\nguid: " + guid + "\nMonoImporter:\n  externalObjects: {}\n  serializedVersion: 2\n"
}
