package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"raid-server/internal/domain"
)

// ErrInvalidJournal - файл не является журналом боя.
var ErrInvalidJournal = errors.New("invalid journal file")

func (s *JournalService) Load(path string) (*domain.EncounterJournal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readBinary(f)
}

func readBinary(r io.Reader) (*domain.EncounterJournal, error) {
	// 1. Читаем заголовок целиком
	var header JournalFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Валидация
	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidJournal, header.Magic[:])
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}
	if header.RecordCount < 0 {
		return nil, fmt.Errorf("%w: negative record count", ErrInvalidJournal)
	}

	sessionBuf := make([]byte, header.SessionIDLen)
	if _, err := io.ReadFull(r, sessionBuf); err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}

	j := &domain.EncounterJournal{
		SessionID: string(sessionBuf),
		Seed:      header.Seed,
		Timestamp: header.Timestamp,
		Grid:      domain.Grid{Width: int(header.GridWidth), Height: int(header.GridHeight)},
		Records:   make([]domain.JournalRecord, 0, header.RecordCount),
	}

	// 2. Распаковываем записи
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	for i := 0; i < int(header.RecordCount); i++ {
		rec, err := readRecord(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		j.Records = append(j.Records, rec)
	}

	return j, nil
}

func readRecord(r io.Reader) (domain.JournalRecord, error) {
	var rh RecordHeader
	if err := binary.Read(r, binary.LittleEndian, &rh); err != nil {
		return domain.JournalRecord{}, err
	}

	rec := domain.JournalRecord{
		AtMs:  rh.AtMs,
		Event: domain.EventType(rh.Event),
	}

	mechBuf := make([]byte, rh.MechanicLen)
	if _, err := io.ReadFull(r, mechBuf); err != nil {
		return rec, err
	}
	rec.MechanicID = string(mechBuf)

	playerBuf := make([]byte, rh.PlayerLen)
	if _, err := io.ReadFull(r, playerBuf); err != nil {
		return rec, err
	}
	rec.PlayerID = string(playerBuf)

	if rh.PayloadLen > 0 {
		rec.Payload = make(json.RawMessage, rh.PayloadLen)
		if _, err := io.ReadFull(r, rec.Payload); err != nil {
			return rec, err
		}
	}

	return rec, nil
}
