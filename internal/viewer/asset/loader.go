package asset

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cogentcore.org/core/math32"
	"github.com/qmuntal/gltf"

	"building-viewer/internal/viewer/scene"
)

// ============================================================
// GLB Loader
// ============================================================

var ErrNoScene = errors.New("asset has no scene")

const maxDepth = 256

// Load открывает GLB/glTF файл. gltf.Open не принимает контекст, поэтому
// ожидание ограничивается ctx, а сам разбор дорабатывает в фоне.
func Load(ctx context.Context, path string) (*gltf.Document, error) {
	type result struct {
		doc *gltf.Document
		err error
	}
	done := make(chan result, 1)
	go func() {
		doc, err := gltf.Open(path)
		done <- result{doc: doc, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load asset %s: %w", path, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("load asset %s: %w", path, r.err)
		}
		return r.doc, nil
	}
}

// Build собирает дерево сцены из сцены по умолчанию glTF-документа.
func Build(doc *gltf.Document) (*scene.Node, error) {
	if doc == nil || len(doc.Scenes) == 0 {
		return nil, ErrNoScene
	}
	sceneIdx := 0
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		sceneIdx = *doc.Scene
	}
	src := doc.Scenes[sceneIdx]

	name := src.Name
	if name == "" {
		name = "Scene"
	}
	root := scene.NewGroup(name)

	b := &builder{doc: doc}
	for _, idx := range src.Nodes {
		n, err := b.node(idx, 0)
		if err != nil {
			return nil, err
		}
		root.Add(n)
	}
	return root, nil
}

type builder struct {
	doc *gltf.Document
}

func (b *builder) node(idx, depth int) (*scene.Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("node %d: hierarchy deeper than %d", idx, maxDepth)
	}
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	src := b.doc.Nodes[idx]

	kind := scene.KindGroup
	if src.Mesh != nil {
		kind = scene.KindMesh
	}
	n := scene.NewNode(src.Name, kind)

	n.Position = math32.Vec3(float32(src.Translation[0]), float32(src.Translation[1]), float32(src.Translation[2]))
	if src.Rotation[0] != 0 || src.Rotation[1] != 0 || src.Rotation[2] != 0 || src.Rotation[3] != 0 {
		n.Rotation = math32.NewQuat(float32(src.Rotation[0]), float32(src.Rotation[1]), float32(src.Rotation[2]), float32(src.Rotation[3]))
	}
	if src.Scale[0] != 0 || src.Scale[1] != 0 || src.Scale[2] != 0 {
		n.Scale = math32.Vec3(float32(src.Scale[0]), float32(src.Scale[1]), float32(src.Scale[2]))
	}
	n.Matrix = explicitMatrix(src)

	if src.Mesh != nil {
		n.Bounds = b.meshBounds(*src.Mesh)
	}

	for _, child := range src.Children {
		c, err := b.node(child, depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(c)
	}
	return n, nil
}

var identity = math32.Matrix4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// explicitMatrix возвращает матрицу узла, если она задана и не единичная.
func explicitMatrix(src *gltf.Node) *math32.Matrix4 {
	var m math32.Matrix4
	nonZero := false
	for i, v := range src.Matrix {
		m[i] = float32(v)
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero || m == identity {
		return nil
	}
	return &m
}

// meshBounds берёт min/max из POSITION-аксессоров всех примитивов.
func (b *builder) meshBounds(meshIdx int) math32.Box3 {
	box := math32.B3Empty()
	if meshIdx < 0 || meshIdx >= len(b.doc.Meshes) {
		return box
	}
	for _, prim := range b.doc.Meshes[meshIdx].Primitives {
		accIdx, ok := prim.Attributes["POSITION"]
		if !ok || accIdx < 0 || accIdx >= len(b.doc.Accessors) {
			continue
		}
		acc := b.doc.Accessors[accIdx]
		if len(acc.Min) < 3 || len(acc.Max) < 3 {
			continue
		}
		box.ExpandByPoint(math32.Vec3(float32(acc.Min[0]), float32(acc.Min[1]), float32(acc.Min[2])))
		box.ExpandByPoint(math32.Vec3(float32(acc.Max[0]), float32(acc.Max[1]), float32(acc.Max[2])))
	}
	return box
}

// ============================================================
// Library
// ============================================================

// Library держит текущий документ. Каждая сессия получает собственное дерево.
type Library struct {
	mu       sync.RWMutex
	path     string
	doc      *gltf.Document
	loadedAt time.Time
}

func NewLibrary(path string) *Library {
	return &Library{path: path}
}

// NewLibraryFromDocument нужен для тестов и встраивания без файла.
func NewLibraryFromDocument(doc *gltf.Document) *Library {
	return &Library{doc: doc, loadedAt: time.Now()}
}

func (l *Library) Path() string {
	return l.path
}

// Reload перечитывает файл. При ошибке остаётся прежний документ.
func (l *Library) Reload(ctx context.Context) error {
	doc, err := Load(ctx, l.path)
	if err != nil {
		log.Printf("[ASSET] Load error: %v", err)
		return err
	}
	if _, err := Build(doc); err != nil {
		log.Printf("[ASSET] Invalid asset %s: %v", l.path, err)
		return fmt.Errorf("build asset %s: %w", l.path, err)
	}

	l.mu.Lock()
	l.doc = doc
	l.loadedAt = time.Now()
	l.mu.Unlock()

	log.Printf("[ASSET] Loaded %s: %d nodes, %d meshes", l.path, len(doc.Nodes), len(doc.Meshes))
	return nil
}

func (l *Library) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.doc != nil
}

func (l *Library) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// NewTree строит свежее дерево сцены из текущего документа.
func (l *Library) NewTree() (*scene.Node, error) {
	l.mu.RLock()
	doc := l.doc
	l.mu.RUnlock()
	if doc == nil {
		return nil, ErrNoScene
	}
	return Build(doc)
}
