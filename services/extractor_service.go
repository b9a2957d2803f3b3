package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"docqa/models"
)

func init() {
	// Load .env before reading the license key; init runs ahead of main.
	if err := godotenv.Load(); err != nil {
		log.Println("EXTRACTOR: no .env file found, relying on environment variables")
	}
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			log.Printf("EXTRACTOR: failed to set unidoc license key: %v, PDF extraction will fail", err)
		}
	}
}

// LoadDocumentsFromDir walks dir and loads every supported file as a
// Document. The source identifier is the path relative to dir and the hash
// covers the extracted text, so unchanged files can be skipped on reindex.
func LoadDocumentsFromDir(dir string) ([]models.Document, error) {
	var documents []models.Document
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !IsSupportedFile(path) {
			return nil
		}
		doc, err := LoadDocument(dir, path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		documents = append(documents, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

// LoadDocument extracts one file into a Document. baseDir anchors the
// relative source identifier; when empty, the bare path is used.
func LoadDocument(baseDir, path string) (models.Document, error) {
	text, err := extractText(path)
	if err != nil {
		return models.Document{}, err
	}
	source := path
	if baseDir != "" {
		if rel, relErr := filepath.Rel(baseDir, path); relErr == nil {
			source = rel
		}
	}
	sum := sha256.Sum256([]byte(text))
	return models.Document{
		Source: source,
		Text:   text,
		Hash:   hex.EncodeToString(sum[:]),
	}, nil
}

// IsSupportedFile reports whether the extractor can handle the file.
func IsSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	default:
		return false
	}
}

func extractText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(content), nil
	case ".pdf":
		return extractTextFromPDF(path)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// extractTextFromPDF pulls all page text from a PDF via UniPDF.
func extractTextFromPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return "", err
	}
	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", err
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}
