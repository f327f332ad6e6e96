package models

import (
	"context"

	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// DebitNote raises what the customer owes. Note and ledger row are written in one transaction.
type DebitNote struct {
	AdjustmentNote `gorm:"embedded"`
}

func CreateDebitNote(ctx context.Context, input *NewNote) (*DebitNote, error) {
	return createNote[DebitNote](ctx, debitNoteBook, input)
}

func DeleteDebitNote(ctx context.Context, id int) (*DebitNote, error) {
	return deleteNote[DebitNote](ctx, debitNoteBook, id)
}

func GetDebitNote(ctx context.Context, id int) (*DebitNote, error) {
	return utils.FetchModel[DebitNote](ctx, id)
}

func ListDebitNotes(ctx context.Context, filter NoteFilter) ([]*DebitNote, *PageInfo, error) {
	return listNotes[DebitNote](ctx, filter)
}
