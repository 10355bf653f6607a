package storage

import "testing"

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"", StorageTypeS3},
		{"https://abc123.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.eu-west-1.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}

	for _, tt := range tests {
		if got := detectStorageType(tt.endpoint); got != tt.want {
			t.Errorf("detectStorageType(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://storage.example.com/", "storage.example.com"},
		{"http://localhost:9000/some/path", "localhost:9000"},
		{"minio:9000", "minio:9000"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeEndpoint(tt.in); got != tt.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCopySourceEscapesKeySegments(t *testing.T) {
	got := copySource("sales", "2025/06/sales data.csv")
	want := "sales/2025/06/sales%20data.csv"
	if got != want {
		t.Errorf("copySource = %q, want %q", got, want)
	}
}

func TestNewStorageSelectsBackend(t *testing.T) {
	s, err := NewStorage(&Config{Type: StorageTypeMinIO, Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	if err != nil {
		t.Fatalf("NewStorage(minio) error: %v", err)
	}
	if _, ok := s.(*MinIOStorage); !ok {
		t.Errorf("expected *MinIOStorage, got %T", s)
	}

	cfg := &Config{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b"}
	s, err = NewStorage(cfg)
	if err != nil {
		t.Fatalf("NewStorage(s3) error: %v", err)
	}
	if _, ok := s.(*S3Storage); !ok {
		t.Errorf("expected *S3Storage, got %T", s)
	}
	if cfg.Type != StorageTypeS3Compatible {
		t.Errorf("expected detected type %q, got %q", StorageTypeS3Compatible, cfg.Type)
	}
}
