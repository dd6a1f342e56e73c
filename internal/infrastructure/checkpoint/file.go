// Package checkpoint persists network parameter sets: as digest-verified
// files and in the SQLite run store.
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/nn"
)

// Tensor is one serialised parameter.
type Tensor struct {
	Name  string
	Rows  int
	Cols  int
	Value []float64
}

// Set is a saved parameter set. Replay contents and exploration state are
// not part of it.
type Set struct {
	Algorithm rl.Algorithm
	Step      int64
	SavedAt   time.Time
	Tensors   []Tensor
}

// envelope is the on-disk form: the gob-encoded Set and its digest.
type envelope struct {
	Digest  []byte
	Payload []byte
}

// Capture copies the current parameter values into a Set.
func Capture(params []*nn.Param, algorithm rl.Algorithm, step int64) Set {
	set := Set{
		Algorithm: algorithm,
		Step:      step,
		SavedAt:   time.Now().UTC(),
		Tensors:   make([]Tensor, len(params)),
	}
	for i, p := range params {
		set.Tensors[i] = Tensor{
			Name:  p.Name,
			Rows:  p.Rows,
			Cols:  p.Cols,
			Value: append([]float64(nil), p.Value...),
		}
	}
	return set
}

// Restore copies a Set into params. Every tensor must match by position,
// name and dimensions; on mismatch params are left untouched.
func Restore(params []*nn.Param, set Set) error {
	if len(params) != len(set.Tensors) {
		return fmt.Errorf("%w: %d tensors, network has %d", rl.ErrCheckpointCorrupt, len(set.Tensors), len(params))
	}
	for i, p := range params {
		t := set.Tensors[i]
		if t.Name != p.Name || t.Rows != p.Rows || t.Cols != p.Cols || len(t.Value) != len(p.Value) {
			return fmt.Errorf("%w: tensor %s is %dx%d, network %s is %dx%d",
				rl.ErrCheckpointCorrupt, t.Name, t.Rows, t.Cols, p.Name, p.Rows, p.Cols)
		}
	}
	for i, p := range params {
		copy(p.Value, set.Tensors[i].Value)
	}
	return nil
}

// Encode serialises a Set and returns the bytes with their hex digest.
func Encode(set Set) ([]byte, string, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(set); err != nil {
		return nil, "", fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	sum := blake2b.Sum256(payload.Bytes())

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(envelope{Digest: sum[:], Payload: payload.Bytes()}); err != nil {
		return nil, "", fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return out.Bytes(), hex.EncodeToString(sum[:]), nil
}

// Decode verifies and deserialises bytes produced by Encode.
func Decode(data []byte) (Set, string, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return Set{}, "", fmt.Errorf("%w: %v", rl.ErrCheckpointCorrupt, err)
	}

	sum := blake2b.Sum256(env.Payload)
	if !bytes.Equal(sum[:], env.Digest) {
		return Set{}, "", fmt.Errorf("%w: digest mismatch", rl.ErrCheckpointCorrupt)
	}

	var set Set
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(&set); err != nil {
		return Set{}, "", fmt.Errorf("%w: %v", rl.ErrCheckpointCorrupt, err)
	}
	return set, hex.EncodeToString(sum[:]), nil
}

// SaveFile writes a Set to path, creating parent directories.
func SaveFile(path string, set Set) (string, error) {
	data, digest, err := Encode(set)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return digest, nil
}

// LoadFile reads and verifies a Set written by SaveFile.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, fmt.Errorf("%w: %s", rl.ErrCheckpointNotFound, path)
		}
		return Set{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	set, _, err := Decode(data)
	return set, err
}

// FileName returns the conventional checkpoint file name for a step.
func FileName(dir string, algorithm rl.Algorithm, step int64) string {
	return filepath.Join(dir, fmt.Sprintf("%s-agent-%d.ckpt", algorithm, step))
}
