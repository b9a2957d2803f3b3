package services

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"docqa/models"
)

// DirectoryIndexer keeps the collection in sync with a documents directory:
// one-shot reconciliation via Reindex and live updates via Watch.
type DirectoryIndexer struct {
	dir       string
	ingestion *IngestionService
	index     VectorIndex
}

// NewDirectoryIndexer builds an indexer for dir.
func NewDirectoryIndexer(dir string, ingestion *IngestionService, index VectorIndex) *DirectoryIndexer {
	return &DirectoryIndexer{dir: dir, ingestion: ingestion, index: index}
}

// Reindex reconciles the collection with the directory contents: new and
// changed files are re-ingested, files that disappeared have their records
// removed. Unchanged files (same content hash) are skipped. It returns the
// number of documents ingested.
func (d *DirectoryIndexer) Reindex(ctx context.Context) (int, error) {
	log.Printf("INDEXER: starting directory scan of %s", d.dir)

	if err := d.index.EnsureCollection(ctx); err != nil {
		return 0, err
	}
	state, err := d.index.IndexState(ctx)
	if err != nil {
		return 0, err
	}
	log.Printf("INDEXER: %d sources currently indexed", len(state))

	documents, err := LoadDocumentsFromDir(d.dir)
	if err != nil {
		return 0, err
	}

	var toIngest []models.Document
	present := make(map[string]bool, len(documents))
	for _, doc := range documents {
		present[doc.Source] = true
		if hash, ok := state[doc.Source]; ok && hash == doc.Hash {
			continue
		}
		toIngest = append(toIngest, doc)
	}

	if len(toIngest) > 0 {
		if _, err := d.ingestion.Ingest(ctx, toIngest); err != nil {
			return 0, err
		}
	}

	for source := range state {
		if present[source] {
			continue
		}
		log.Printf("INDEXER: source %q no longer on disk, removing records", source)
		if err := d.index.DeleteBySource(ctx, source); err != nil {
			log.Printf("INDEXER: failed to delete records for %q: %v", source, err)
		}
	}

	log.Printf("INDEXER: directory scan finished, %d documents ingested", len(toIngest))
	return len(toIngest), nil
}

// Watch blocks until ctx is cancelled, re-ingesting files as they change.
// Create and write events re-ingest the file; remove and rename events drop
// its records. Editors that write via rename produce both, which resolves
// to the same end state.
func (d *DirectoryIndexer) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER: failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						// Subdirectories created after startup get their
						// own watch so their files are seen too.
						if addErr := watcher.Add(event.Name); addErr != nil {
							log.Printf("WATCHER: failed to watch new directory %s: %v", event.Name, addErr)
						}
						continue
					}
				}
				if !IsSupportedFile(event.Name) {
					continue
				}
				d.handleEvent(ctx, event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: context cancelled, shutting down")
				return
			}
		}
	}()

	// fsnotify watches are not recursive; register every subdirectory so
	// the watch covers the same tree the directory scan does.
	if err := watchTree(watcher, d.dir); err != nil {
		log.Printf("WATCHER: failed to watch %s: %v", d.dir, err)
		return
	}
	log.Printf("WATCHER: watching %s", d.dir)

	<-ctx.Done()
}

// watchTree adds root and every directory below it to the watcher.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func (d *DirectoryIndexer) handleEvent(ctx context.Context, event fsnotify.Event) {
	source, err := filepath.Rel(d.dir, event.Name)
	if err != nil {
		source = event.Name
	}

	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		log.Printf("WATCHER: %q changed, re-ingesting", source)
		doc, err := LoadDocument(d.dir, event.Name)
		if err != nil {
			log.Printf("WATCHER: failed to load %q: %v", source, err)
			return
		}
		if _, err := d.ingestion.Ingest(ctx, []models.Document{doc}); err != nil {
			log.Printf("WATCHER: failed to ingest %q: %v", source, err)
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		log.Printf("WATCHER: %q removed, dropping its records", source)
		if err := d.index.DeleteBySource(ctx, source); err != nil {
			log.Printf("WATCHER: failed to delete records for %q: %v", source, err)
		}
	}
}
