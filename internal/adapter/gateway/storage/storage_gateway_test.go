package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

func gateways(t *testing.T) map[string]output.StorageGateway {
	t.Helper()
	local, err := NewLocalStorageGateway(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	return map[string]output.StorageGateway{
		"local":  local,
		"s3":     NewS3StorageGatewayWithClient(NewMockS3Client(), "bucket", "align/test"),
		"memory": NewMockStorageGateway(),
	}
}

func TestStorageGateways_SaveAndLoad(t *testing.T) {
	ctx := context.Background()

	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			meta, err := gw.SaveArtifact(ctx, output.SaveArtifactRequest{
				Kind:        output.ArtifactImage,
				Content:     []byte("png-bytes"),
				ContentType: "image/png",
				Metadata:    map[string]string{"filename": "shot.png"},
			})
			require.NoError(t, err)
			assert.Contains(t, meta.ID, "img_")
			assert.Equal(t, int64(9), meta.Size)
			assert.Equal(t, output.ArtifactImage, meta.Kind)

			got, err := gw.LoadArtifact(ctx, meta.ID)
			require.NoError(t, err)
			assert.Equal(t, []byte("png-bytes"), got.Content)
			assert.Equal(t, "image/png", got.Metadata.ContentType)
			assert.Equal(t, "shot.png", got.Metadata.Metadata["filename"])
		})
	}
}

func TestStorageGateways_NotFound(t *testing.T) {
	ctx := context.Background()

	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			_, err := gw.LoadArtifact(ctx, "mock_01jb6x8y2k9fqr4t3vwhgp5m2c")
			assert.ErrorIs(t, err, ErrArtifactNotFound)

			_, err = gw.LoadArtifact(ctx, "../../etc/passwd")
			assert.ErrorIs(t, err, ErrArtifactNotFound)
		})
	}
}

func TestStorageGateways_ListByKind(t *testing.T) {
	ctx := context.Background()

	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			var ids []string
			for i := 0; i < 3; i++ {
				meta, err := gw.SaveArtifact(ctx, output.SaveArtifactRequest{
					Kind: output.ArtifactMockup, Content: []byte("<html></html>"), ContentType: "text/html",
				})
				require.NoError(t, err)
				ids = append(ids, meta.ID)
			}
			_, err := gw.SaveArtifact(ctx, output.SaveArtifactRequest{Kind: output.ArtifactImage, Content: []byte("x")})
			require.NoError(t, err)

			list, err := gw.ListArtifacts(ctx, output.ArtifactMockup)
			require.NoError(t, err)
			require.Len(t, list, 3)
			for i, m := range list {
				assert.Equal(t, ids[i], m.ID)
			}
		})
	}
}

func TestStorageGateways_RejectUnknownKind(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			_, err := gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{Kind: "video"})
			assert.Error(t, err)
		})
	}
}

func TestS3StorageGateway_KeysAndPagination(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.PageSize = 2
	gw := NewS3StorageGatewayWithClient(client, "bucket", "/align/prod/")

	meta, err := gw.SaveArtifact(ctx, output.SaveArtifactRequest{
		Kind: output.ArtifactImage, Content: []byte("a"), Metadata: map[string]string{"filename": "a.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, client.ObjectCount())
	assert.Equal(t, "s3://bucket/align/prod/artifacts/image/"+meta.ID+"/content", meta.StoragePath)

	objMeta, ok := client.ObjectMetadata("align/prod/artifacts/image/" + meta.ID + "/content")
	require.True(t, ok)
	assert.Equal(t, "a.png", objMeta["filename"])
	assert.Equal(t, "image", objMeta["artifact-kind"])

	for i := 0; i < 4; i++ {
		_, err := gw.SaveArtifact(ctx, output.SaveArtifactRequest{Kind: output.ArtifactImage, Content: []byte("b")})
		require.NoError(t, err)
	}
	list, err := gw.ListArtifacts(ctx, output.ArtifactImage)
	require.NoError(t, err)
	assert.Len(t, list, 5)

	require.NoError(t, gw.DeleteArtifact(ctx, meta.ID))
	_, err = gw.LoadArtifact(ctx, meta.ID)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestS3StorageGateway_PutFailure(t *testing.T) {
	client := NewMockS3Client()
	client.PutErr = assert.AnError
	gw := NewS3StorageGatewayWithClient(client, "bucket", "")

	_, err := gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{Kind: output.ArtifactImage})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLocalStorageGateway_Delete(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	gw, err := NewLocalStorageGateway(fs, "/data")
	require.NoError(t, err)

	meta, err := gw.SaveArtifact(ctx, output.SaveArtifactRequest{Kind: output.ArtifactMockup, Content: []byte("x")})
	require.NoError(t, err)

	exists, err := afero.DirExists(fs, "/data/artifacts/mockup/"+meta.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, gw.DeleteArtifact(ctx, meta.ID))
	_, err = gw.LoadArtifact(ctx, meta.ID)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestNewS3StorageGatewayRequiresBucket(t *testing.T) {
	_, err := NewS3StorageGateway(context.Background(), S3Config{})
	assert.Error(t, err)
}
