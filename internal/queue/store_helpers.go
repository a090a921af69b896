package queue

import (
	"database/sql"
	"time"
)

const itemColumns = "seq, id, payload, requester, status, signature, error_message, enqueued_at, finished_at, finished_seq"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(scanner rowScanner) (*Item, error) {
	var (
		item        Item
		status      string
		signature   sql.NullString
		errorMsg    sql.NullString
		enqueuedRaw string
		finishedRaw sql.NullString
		finishedSeq sql.NullInt64
	)
	if err := scanner.Scan(
		&item.Seq,
		&item.ID,
		&item.Payload,
		&item.Requester,
		&status,
		&signature,
		&errorMsg,
		&enqueuedRaw,
		&finishedRaw,
		&finishedSeq,
	); err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.Signature = signature.String
	item.Error = errorMsg.String
	item.EnqueuedAt = parseTimestamp(enqueuedRaw)
	if finishedRaw.Valid {
		item.FinishedAt = parseTimestamp(finishedRaw.String)
	}
	item.FinishedSeq = finishedSeq.Int64
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
