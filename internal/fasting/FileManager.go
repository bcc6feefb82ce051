package fasting

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"fastd/internal/fasting/interfaces"
	"fastd/internal/models"
	"fastd/internal/providers"
	"fastd/internal/services"
)

// FileManager is the persistence gateway: the full in-memory state is
// written as one zstd-compressed JSON envelope via tmp-file + fsync +
// rename, so a crash mid-save never corrupts the previous snapshot.
type FileManager struct {
	service    services.SessionServiceInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, service services.SessionServiceInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		service:    service,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	storage := f.service.GetSnapshot()

	jsonData, err := json.Marshal(storage)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	if err = os.Rename(tmpFile, fileName); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	// Current envelope format
	var storage models.StorageV2
	if err := json.Unmarshal(decompressedData, &storage); err == nil && storage.Version >= 2 {
		f.service.PutSnapshot(&storage)
		return nil
	}

	// Legacy format: a bare session list with no envelope. Streaks and
	// goal come back as zero values; the service recomputes the former
	// and keeps the configured default for the latter.
	f.logger.Warnf(providers.TypeApp, "Inconsistent DB found, try to migrate from old data format")
	var sessions []*models.SessionRecord
	if err := json.Unmarshal(decompressedData, &sessions); err != nil {
		f.logger.Warnf(providers.TypeApp, "Migration failed")
		return err
	}
	f.logger.Warnf(providers.TypeApp, "Migration from v1 format successful")
	f.service.PutSnapshot(&models.StorageV2{
		Version:  models.StorageVersion,
		Sessions: sessions,
	})
	return nil
}
