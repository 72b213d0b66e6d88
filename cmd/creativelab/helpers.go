package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

// loadCorpus returns the embedded defaults when no override path is
// given.
func loadCorpus(path string) (*corpus.Config, error) {
	if path == "" {
		return corpus.Default(), nil
	}
	cfg, err := corpus.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", path, err)
	}
	return cfg, nil
}

// loadCard reads a structure card from a JSON file, or stdin when the
// path is "-". With legacy set, older field shapes (why_you_bucket,
// why_now_phrase) are normalized onto canonical fields first.
func loadCard(path string, legacy bool) (domain.StructureCard, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.StructureCard{}, fmt.Errorf("read card: %w", err)
	}

	if legacy {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return domain.StructureCard{}, fmt.Errorf("parse card %s: %w", path, err)
		}
		return domain.NormalizeLegacyCard(m), nil
	}

	var card domain.StructureCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return domain.StructureCard{}, fmt.Errorf("parse card %s: %w", path, err)
	}
	return card, nil
}

// writeOutput writes to the given path, or stdout when the path is
// empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
