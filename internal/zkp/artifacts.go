package zkp

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/logger"
	"gopkg.in/yaml.v3"

	"github.com/roach88/provledger/internal/ir"
)

// Artifact file names inside the artifacts directory.
const (
	ManifestFile         = "manifest.yaml"
	ConstraintSystemFile = "provenance.ccs"
	ProvingKeyFile       = "provenance.pk"
	VerifyingKeyFile     = "provenance.vk"
)

const backendName = "groth16"

func init() {
	// gnark logs compilation progress to stdout by default.
	logger.Disable()
}

// Manifest describes a set of circuit artifacts and pins their checksums.
type Manifest struct {
	Circuit     string        `yaml:"circuit" json:"circuit"`
	Curve       string        `yaml:"curve" json:"curve"`
	Backend     string        `yaml:"backend" json:"backend"`
	Constraints int           `yaml:"constraints" json:"constraints"`
	CreatedAt   time.Time     `yaml:"created_at" json:"created_at"`
	Files       ManifestFiles `yaml:"files" json:"files"`
}

// ManifestFiles lists each artifact file.
type ManifestFiles struct {
	ConstraintSystem ArtifactFile `yaml:"constraint_system" json:"constraint_system"`
	ProvingKey       ArtifactFile `yaml:"proving_key" json:"proving_key"`
	VerifyingKey     ArtifactFile `yaml:"verifying_key" json:"verifying_key"`
}

// ArtifactFile is a file name relative to the artifacts directory and the
// hex SHA-256 of its contents.
type ArtifactFile struct {
	Name   string `yaml:"name" json:"name"`
	SHA256 string `yaml:"sha256" json:"sha256"`
}

// Artifacts is the loaded, immutable proving material.
type Artifacts struct {
	Manifest     Manifest
	CS           constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
}

// Compile compiles the provenance circuit to an R1CS over the BN254 scalar field.
func Compile() (constraint.ConstraintSystem, error) {
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	return cs, nil
}

// Setup compiles the circuit, runs the Groth16 setup and writes the
// artifacts plus manifest into dir, creating it if needed.
//
// The setup is a single-party ceremony; its toxic waste lives only in
// this process's memory.
func Setup(dir string) (*Artifacts, error) {
	cs, err := Compile()
	if err != nil {
		return nil, err
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}

	manifest := Manifest{
		Circuit:     ir.CircuitID,
		Curve:       CurveName,
		Backend:     backendName,
		Constraints: cs.GetNbConstraints(),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	if manifest.Files.ConstraintSystem, err = writeArtifact(dir, ConstraintSystemFile, cs); err != nil {
		return nil, err
	}
	if manifest.Files.ProvingKey, err = writeArtifact(dir, ProvingKeyFile, pk); err != nil {
		return nil, err
	}
	if manifest.Files.VerifyingKey, err = writeArtifact(dir, VerifyingKeyFile, vk); err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return &Artifacts{Manifest: manifest, CS: cs, ProvingKey: pk, VerifyingKey: vk}, nil
}

// writeArtifact writes src to dir/name and returns its checksum entry.
func writeArtifact(dir, name string, src io.WriterTo) (ArtifactFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return ArtifactFile{}, fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := src.WriteTo(io.MultiWriter(f, h)); err != nil {
		return ArtifactFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		return ArtifactFile{}, fmt.Errorf("sync %s: %w", name, err)
	}

	return ArtifactFile{Name: name, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

// LoadArtifacts reads and validates the artifacts in dir. Every failure
// wraps ir.ErrProofSystemUnavailable.
func LoadArtifacts(dir string) (*Artifacts, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	cs := groth16.NewCS(ecc.BN254)
	if err := readArtifact(dir, manifest.Files.ConstraintSystem, cs); err != nil {
		return nil, err
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if err := readArtifact(dir, manifest.Files.ProvingKey, pk); err != nil {
		return nil, err
	}
	vk, err := readVerifyingKey(dir, manifest)
	if err != nil {
		return nil, err
	}

	return &Artifacts{Manifest: *manifest, CS: cs, ProvingKey: pk, VerifyingKey: vk}, nil
}

// LoadVerifyingKey reads only the manifest and verifying key from dir.
// The constraint system and proving key need not be present. The
// returned Artifacts carry no CS or ProvingKey.
func LoadVerifyingKey(dir string) (*Artifacts, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	vk, err := readVerifyingKey(dir, manifest)
	if err != nil {
		return nil, err
	}
	return &Artifacts{Manifest: *manifest, VerifyingKey: vk}, nil
}

func readVerifyingKey(dir string, manifest *Manifest) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readArtifact(dir, manifest.Files.VerifyingKey, vk); err != nil {
		return nil, err
	}
	if vk.NbPublicWitness() != publicInputs {
		return nil, fmt.Errorf("%w: verifying key expects %d public inputs, circuit has %d",
			ir.ErrProofSystemUnavailable, vk.NbPublicWitness(), publicInputs)
	}
	return vk, nil
}

// publicInputs is the number of public circuit inputs (DigestHi, DigestLo, Commitment).
const publicInputs = 3

// ReadManifest reads dir/manifest.yaml and checks it names this circuit.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no %s in %s (run `provledger setup` first)",
				ir.ErrProofSystemUnavailable, ManifestFile, dir)
		}
		return nil, fmt.Errorf("%w: read manifest: %v", ir.ErrProofSystemUnavailable, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", ir.ErrProofSystemUnavailable, err)
	}

	if m.Circuit != ir.CircuitID {
		return nil, fmt.Errorf("%w: artifacts built for circuit %q, want %q",
			ir.ErrProofSystemUnavailable, m.Circuit, ir.CircuitID)
	}
	if m.Curve != CurveName || m.Backend != backendName {
		return nil, fmt.Errorf("%w: artifacts use %s/%s, want %s/%s",
			ir.ErrProofSystemUnavailable, m.Backend, m.Curve, backendName, CurveName)
	}

	return &m, nil
}

// readArtifact decodes dir/file.Name into dst while checking its checksum.
func readArtifact(dir string, file ArtifactFile, dst io.ReaderFrom) error {
	if file.Name == "" || filepath.Base(file.Name) != file.Name {
		return fmt.Errorf("%w: invalid artifact name %q", ir.ErrProofSystemUnavailable, file.Name)
	}

	f, err := os.Open(filepath.Join(dir, file.Name))
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ir.ErrProofSystemUnavailable, file.Name, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := dst.ReadFrom(io.TeeReader(f, h)); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ir.ErrProofSystemUnavailable, file.Name, err)
	}
	// Drain anything the decoder did not consume so the checksum covers the file.
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("%w: read %s: %v", ir.ErrProofSystemUnavailable, file.Name, err)
	}

	if got := hex.EncodeToString(h.Sum(nil)); got != file.SHA256 {
		return fmt.Errorf("%w: checksum mismatch for %s", ir.ErrProofSystemUnavailable, file.Name)
	}
	return nil
}
