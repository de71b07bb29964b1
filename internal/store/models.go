package store

// Folder is one row of the local folder registry ("pastas"). Code is the
// short sigla used in document names; it is unique across the registry.
type Folder struct {
	ID   int64
	Name string
	Code string
}

// Document is one registered PSG document ("documentos"). Free-text
// sections are stored as-is; revision and attachment lists are stored as
// JSON strings, mirroring how the registry has always persisted them.
type Document struct {
	ID              int64
	FolderID        int64
	Title           string
	Objective       string
	Responsible     string
	Concepts        string
	Guidelines      string
	Complementary   string
	References      string
	RevisionsJSON   string
	AttachmentsJSON string
	CreatedAt       string
	Email           string
	TopicCode       string

	// Populated on reads that join the folder registry.
	FolderName string
	FolderCode string
}

// Revision is one entry of a document's revision table.
type Revision struct {
	Data        string `json:"data"`
	Responsavel string `json:"responsavel"`
	Alteracao   string `json:"alteracao"`
}

// StatusEntry records one step of a document's approval history.
type StatusEntry struct {
	ID         int64
	FolderID   int64
	FolderName string
	Status     string
	Email      string
}
