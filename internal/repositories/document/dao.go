package document

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/docstore"
)

type DocumentRow struct {
	Collection string                          `db:"collection"`
	ID         string                          `db:"id"`
	Data       database.JSONB[json.RawMessage] `db:"data"`
	CreatedAt  time.Time                       `db:"created_at"`
	UpdatedAt  time.Time                       `db:"updated_at"`
}

const documentsTable = "documents"

var documentStruct = database.NewStruct(new(DocumentRow))

func toDocument(row DocumentRow) docstore.Document {
	return docstore.Document{
		ID:        row.ID,
		Data:      row.Data.Data,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
