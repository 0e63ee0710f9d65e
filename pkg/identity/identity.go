package identity

import (
	"os"

	"github.com/benmeehan/rssi-collector/pkg/file"
	"github.com/google/uuid"
)

// Identity holds the collector station's unique identifier and label.
type Identity struct {
	ID   string `json:"station_id,omitempty"`
	Name string `json:"station_name,omitempty"`
}

// StationInfoInterface defines methods for managing station identity.
type StationInfoInterface interface {
	LoadStationInfo() error
	GetStationID() string
	GetStationIdentity() *Identity
}

// StationInfo manages the station identity and its associated file operations.
type StationInfo struct {
	StationInfoFile string
	Identity        Identity
	fileOps         file.FileOperations
}

// NewStationInfo initializes a new StationInfo instance.
func NewStationInfo(filePath string, fileOps file.FileOperations) *StationInfo {
	return &StationInfo{
		StationInfoFile: filePath,
		fileOps:         fileOps,
	}
}

// LoadStationInfo reads the identity file. A missing file or an empty id
// produces a fresh identity that is written back immediately.
func (s *StationInfo) LoadStationInfo() error {
	err := s.fileOps.ReadJsonFile(s.StationInfoFile, &s.Identity)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if s.Identity.ID != "" {
		return nil
	}

	s.Identity.ID = uuid.New().String()
	return s.fileOps.WriteJsonFile(s.StationInfoFile, s.Identity)
}

// GetStationIdentity returns the current station Identity.
func (s *StationInfo) GetStationIdentity() *Identity {
	return &s.Identity
}

// GetStationID returns the current station ID.
func (s *StationInfo) GetStationID() string {
	return s.Identity.ID
}
