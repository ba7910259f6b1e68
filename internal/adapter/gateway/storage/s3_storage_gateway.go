package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// S3API is the subset of the S3 client used by S3StorageGateway
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// S3StorageGateway implements StorageGateway using AWS S3
// Key layout: <prefix>/artifacts/<kind>/<artifactID>/{content,metadata.json}
type S3StorageGateway struct {
	client     S3API
	bucketName string
	prefix     string
}

// S3Config holds S3 storage gateway configuration
type S3Config struct {
	BucketName string
	Prefix     string
	Region     string
}

// NewS3StorageGateway creates an S3 gateway from the default AWS credential chain
func NewS3StorageGateway(ctx context.Context, cfg S3Config) (*S3StorageGateway, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return NewS3StorageGatewayWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.Prefix), nil
}

// NewS3StorageGatewayWithClient creates a gateway around an existing client
func NewS3StorageGatewayWithClient(client S3API, bucketName, prefix string) *S3StorageGateway {
	return &S3StorageGateway{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}
}

// SaveArtifact uploads content and a metadata.json sidecar
func (g *S3StorageGateway) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	artifactID, err := newArtifactID(req.Kind)
	if err != nil {
		return nil, err
	}

	contentKey := g.key(req.Kind, artifactID, "content")
	objectMetadata := map[string]string{
		"artifact-id":   artifactID,
		"artifact-kind": string(req.Kind),
	}
	for k, v := range req.Metadata {
		objectMetadata[k] = v
	}

	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucketName),
		Key:         aws.String(contentKey),
		Body:        bytes.NewReader(req.Content),
		ContentType: aws.String(req.ContentType),
		Metadata:    objectMetadata,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to S3: %w", err)
	}

	metadata := output.ArtifactMetadata{
		ID:          artifactID,
		Kind:        req.Kind,
		StoragePath: fmt.Sprintf("s3://%s/%s", g.bucketName, contentKey),
		ContentType: req.ContentType,
		Size:        int64(len(req.Content)),
		CreatedAt:   time.Now().UTC(),
		Metadata:    req.Metadata,
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucketName),
		Key:         aws.String(g.key(req.Kind, artifactID, "metadata.json")),
		Body:        bytes.NewReader(metadataJSON),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload metadata to S3: %w", err)
	}

	return &metadata, nil
}

// LoadArtifact downloads an artifact and its metadata
func (g *S3StorageGateway) LoadArtifact(ctx context.Context, artifactID string) (*output.Artifact, error) {
	kind, err := kindOf(artifactID)
	if err != nil {
		return nil, err
	}

	metadataJSON, err := g.get(ctx, g.key(kind, artifactID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var metadata output.ArtifactMetadata
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	content, err := g.get(ctx, g.key(kind, artifactID, "content"))
	if err != nil {
		return nil, err
	}

	return &output.Artifact{ID: artifactID, Content: content, Metadata: metadata}, nil
}

// ListArtifacts lists artifacts of a kind, oldest first
func (g *S3StorageGateway) ListArtifacts(ctx context.Context, kind output.ArtifactKind) ([]*output.ArtifactMetadata, error) {
	prefix := g.key(kind) + "/"
	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucketName),
		Prefix: aws.String(prefix),
	})

	list := []*output.ArtifactMetadata{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, "/metadata.json") {
				continue
			}
			// Skip artifacts whose metadata cannot be read
			data, err := g.get(ctx, key)
			if err != nil {
				continue
			}
			var metadata output.ArtifactMetadata
			if err := json.Unmarshal(data, &metadata); err != nil {
				continue
			}
			list = append(list, &metadata)
		}
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// DeleteArtifact removes the content and metadata objects
func (g *S3StorageGateway) DeleteArtifact(ctx context.Context, artifactID string) error {
	kind, err := kindOf(artifactID)
	if err != nil {
		return err
	}
	for _, name := range []string{"content", "metadata.json"} {
		_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(g.bucketName),
			Key:    aws.String(g.key(kind, artifactID, name)),
		})
		if err != nil {
			return fmt.Errorf("delete %s from S3: %w", name, err)
		}
	}
	return nil
}

func (g *S3StorageGateway) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, key)
		}
		return nil, fmt.Errorf("download %s from S3: %w", key, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (g *S3StorageGateway) key(kind output.ArtifactKind, parts ...string) string {
	elems := append([]string{g.prefix, "artifacts", string(kind)}, parts...)
	return strings.TrimPrefix(path.Join(elems...), "/")
}

var _ output.StorageGateway = (*S3StorageGateway)(nil)
