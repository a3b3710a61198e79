package domain

// Chunk is a bounded slice of one source document. ChunkHash depends only on
// Text; SourceHash is shared by every chunk cut from the same source.
type Chunk struct {
	ID            string `json:"id"`
	SourceURI     string `json:"uri"`
	SequenceIndex int    `json:"idx"`
	Text          string `json:"text"`
	ChunkHash     string `json:"hash"`
	SourceHash    string `json:"file_hash"`
}

// Metadata is the chunk record stored next to the document text in the index.
func (c Chunk) Metadata() map[string]any {
	return map[string]any{
		"id":        c.ID,
		"uri":       c.SourceURI,
		"idx":       c.SequenceIndex,
		"hash":      c.ChunkHash,
		"file_hash": c.SourceHash,
	}
}

// IngestFailure reports a file that was skipped during ingestion.
type IngestFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type IngestResult struct {
	Chunks   []Chunk         `json:"-"`
	Files    int             `json:"files"`
	Failures []IngestFailure `json:"failures,omitempty"`
}

type IndexReport struct {
	Collection string          `json:"collection"`
	Files      int             `json:"files"`
	Chunks     int             `json:"chunks"`
	Batches    int             `json:"batches"`
	Skipped    []IngestFailure `json:"skipped,omitempty"`
}
