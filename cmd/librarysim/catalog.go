package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

type sampleBook struct {
	title, author, isbn, genre string
}

var sampleBooks = []sampleBook{
	{"Pride and Prejudice", "Jane Austen", "978-0-14-143951-8", "Classic"},
	{"Moby-Dick", "Herman Melville", "978-0-14-243724-7", "Classic"},
	{"Frankenstein", "Mary Shelley", "978-0-14-143947-1", "Horror"},
	{"The Time Machine", "H. G. Wells", "978-0-14-143997-6", "Science Fiction"},
	{"Dracula", "Bram Stoker", "978-0-14-143984-6", "Horror"},
	{"Great Expectations", "Charles Dickens", "978-0-14-143956-3", "Classic"},
	{"The Adventures of Sherlock Holmes", "Arthur Conan Doyle", "978-0-14-303800-7", "Mystery"},
	{"Twenty Thousand Leagues Under the Seas", "Jules Verne", "978-0-19-953927-7", "Adventure"},
	{"Jane Eyre", "Charlotte Brontë", "978-0-14-144114-6", "Classic"},
	{"The War of the Worlds", "H. G. Wells", "978-0-14-144103-0", "Science Fiction"},
	{"Emma", "Jane Austen", "978-0-14-143958-7", "Classic"},
	{"The Picture of Dorian Gray", "Oscar Wilde", "978-0-14-143957-0", "Classic"},
	{"Treasure Island", "Robert Louis Stevenson", "978-0-14-143768-2", "Adventure"},
	{"Wuthering Heights", "Emily Brontë", "978-0-14-143955-6", "Classic"},
	{"The Count of Monte Cristo", "Alexandre Dumas", "978-0-14-044926-6", "Adventure"},
}

// seedCatalog stores count catalog entries, cycling through the sample books and
// numbering repeated titles as further editions.
func seedCatalog(ctx context.Context, catalog lending.CatalogStore, count int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, count)

	for i := range count {
		sample := sampleBooks[i%len(sampleBooks)]

		title := sample.title
		if edition := i / len(sampleBooks); edition > 0 {
			title = fmt.Sprintf("%s (edition %d)", sample.title, edition+1)
		}

		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}

		if err := catalog.Save(ctx, lending.BuildBookEntry(id, title, sample.author, sample.isbn, sample.genre, 1)); err != nil {
			return nil, fmt.Errorf("seeding catalog: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}
