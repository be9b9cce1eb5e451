package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"raid-server/internal/domain"
)

const (
	MagicHeader string = `RDJL` // 4 байта
	Version1    uint32 = 1
)

// JournalFileHeader - точное представление заголовка файла в памяти.
// binary.Write умеет писать это целиком, так как тут нет слайсов и строк, только массивы и числа.
// Заголовок не сжат, чтобы файл можно было опознать без распаковки.
type JournalFileHeader struct {
	Magic        [4]byte // 4 байта
	Version      uint32  // 4 байта
	Seed         int64   // 8 байт
	Timestamp    int64   // 8 байт
	GridWidth    uint16  // 2 байта
	GridHeight   uint16  // 2 байта
	RecordCount  int32   // 4 байта
	SessionIDLen uint16  // 2 байта
}

// RecordHeader - заголовок каждой записи. Тело записи сжато zstd вместе с остальными.
type RecordHeader struct {
	AtMs        int64  // 8
	Event       uint8  // 1
	MechanicLen uint8  // 1
	PlayerLen   uint8  // 1
	PayloadLen  uint16 // 2
}

type JournalService struct {
	SaveDir string
}

func NewJournalService(dir string) (*JournalService, error) {
	// Создаем папку если нет
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir %s: %w", dir, err)
	}
	return &JournalService{SaveDir: dir}, nil
}

// Save пишет журнал в SaveDir и возвращает путь к файлу.
func (s *JournalService) Save(j *domain.EncounterJournal) (string, error) {
	filename := fmt.Sprintf("journal_%s_%d_%d.rdjl", j.SessionID, j.Seed, j.Timestamp)
	path := filepath.Join(s.SaveDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := writeBinary(f, j); err != nil {
		return "", fmt.Errorf("write journal %s: %w", path, err)
	}
	return path, nil
}

func writeBinary(w io.Writer, j *domain.EncounterJournal) error {
	sessionBytes := []byte(j.SessionID)
	if len(sessionBytes) > 65535 {
		return fmt.Errorf("session id too long: %d", len(sessionBytes))
	}

	// 1. Подготавливаем и пишем ГЛОБАЛЬНЫЙ ЗАГОЛОВОК
	header := JournalFileHeader{
		Version:      Version1,
		Seed:         j.Seed,
		Timestamp:    j.Timestamp,
		GridWidth:    uint16(j.Grid.Width),
		GridHeight:   uint16(j.Grid.Height),
		RecordCount:  int32(len(j.Records)),
		SessionIDLen: uint16(len(sessionBytes)),
	}
	copy(header.Magic[:], MagicHeader) // Копируем строку в массив [4]byte

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(sessionBytes); err != nil {
		return err
	}

	// 2. Записи идут в сжатом потоке
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	for _, rec := range j.Records {
		if err := writeRecord(enc, rec); err != nil {
			_ = enc.Close()
			return err
		}
	}

	// Close дописывает последний фрейм
	return enc.Close()
}

func writeRecord(w io.Writer, rec domain.JournalRecord) error {
	mechBytes := []byte(rec.MechanicID)
	playerBytes := []byte(rec.PlayerID)
	if len(mechBytes) > 255 {
		return fmt.Errorf("mechanic id too long: %d", len(mechBytes))
	}
	if len(playerBytes) > 255 {
		return fmt.Errorf("player id too long: %d", len(playerBytes))
	}

	payloadLen := len(rec.Payload)
	if payloadLen > 65535 {
		return fmt.Errorf("payload too long: %d", payloadLen)
	}

	recHeader := RecordHeader{
		AtMs:        rec.AtMs,
		Event:       uint8(rec.Event),
		MechanicLen: uint8(len(mechBytes)),
		PlayerLen:   uint8(len(playerBytes)),
		PayloadLen:  uint16(payloadLen),
	}

	// Пишем заголовок записи одной командой
	if err := binary.Write(w, binary.LittleEndian, &recHeader); err != nil {
		return err
	}

	// Пишем динамические данные (тело)
	for _, chunk := range [][]byte{mechBytes, playerBytes, rec.Payload} {
		if len(chunk) == 0 {
			continue
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}
