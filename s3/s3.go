// Package s3 moves datasets and rendered artifacts between the local machine
// and S3 compatible object storage, Amazon S3 or DigitalOcean Spaces. Calls
// go through small request interfaces so they can be tested without network.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/goutils"
	"github.com/dklovas/A-B-Tests/uids"
)

// ErrEtagMismatch is returned when the object ETag after an upload does not
// match the local file's MD5, a truncated or corrupted transfer.
var ErrEtagMismatch = errors.New("uploaded object etag does not match local md5")

// DoS3Data holds DigitalOcean Spaces credentials, the publishing target for
// rendered reports.
type DoS3Data struct {
	AccessKey  string `toml:"access_key"`
	Secret     string `toml:"secret"`
	Region     string `toml:"region"`
	SpacesUrl  string `toml:"spaces_url"`
	BucketName string `toml:"bucket_name"`
}

type S3GetObjectAPI interface {
	GetObject(ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3PutObjectAPI interface {
	PutObject(ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3DeleteObjectAPI interface {
	DeleteObject(ctx context.Context,
		params *s3.DeleteObjectInput,
		optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

func GetFile(c context.Context, api S3GetObjectAPI, input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	return api.GetObject(c, input)
}

func PutFile(c context.Context, api S3PutObjectAPI, input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	return api.PutObject(c, input)
}

func DeleteFile(c context.Context, api S3DeleteObjectAPI, input *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
	return api.DeleteObject(c, input)
}

func newClient(s3data abtests.S3Data) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		context.TODO(), config.WithRegion(s3data.AwsRegionName),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3data.AwsAccessKeyId, s3data.AwsSecretAccessKey, "")))

	if err != nil {
		return nil, errors.New("can't connect to Amazon S3")
	}

	return s3.NewFromConfig(cfg), nil
}

func newSpacesClient(s3data DoS3Data) (*s3.Client, error) {
	// Custom resolver for DigitalOcean Spaces
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: s3data.SpacesUrl,
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(s3data.Region),
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3data.AccessKey, s3data.Secret, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg), nil
}

// FetchDataset reads a CSV object straight into a dataset without touching
// the local disk.
func FetchDataset(ctx context.Context, api S3GetObjectAPI, bucket string, key string) (*abtests.Dataset, error) {
	result, err := GetFile(ctx, api, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer result.Body.Close()

	dataset, err := abtests.ReadCsvFrom(result.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}

	return dataset, nil
}

// DownloadDatasetFile fetches an object into the temp directory under a
// fresh unique name, keeping the original extension, and returns the local
// path.
func DownloadDatasetFile(s3data abtests.S3Data, objectName string) (string, error) {
	client, err := newClient(s3data)
	if err != nil {
		return "", err
	}

	return downloadObject(client, s3data.AwsBucketName, objectName)
}

// DownloadFromSpaces is DownloadDatasetFile against DigitalOcean Spaces.
func DownloadFromSpaces(s3data DoS3Data, objectName string) (string, error) {
	client, err := newSpacesClient(s3data)
	if err != nil {
		return "", err
	}

	return downloadObject(client, s3data.BucketName, objectName)
}

func downloadObject(api S3GetObjectAPI, bucket string, objectName string) (string, error) {
	result, err := GetFile(context.TODO(), api, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return "", err
	}
	defer result.Body.Close()

	extension := ""
	if pointPosition := strings.LastIndex(objectName, "."); pointPosition >= 0 {
		extension = objectName[pointPosition:]
	}

	fileName := filepath.Join(os.TempDir(), uids.GetUid()+extension)

	file, err := os.Create(fileName)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, result.Body); err != nil {
		return "", err
	}

	return fileName, nil
}

// UploadArtifact uploads a local file under the given key with its sniffed
// content type and verifies the reported ETag against the file's MD5.
func UploadArtifact(s3data abtests.S3Data, localPath string, key string) error {
	client, err := newClient(s3data)
	if err != nil {
		return err
	}

	return uploadFile(client, s3data.AwsBucketName, localPath, key)
}

// UploadArtifactToSpaces is UploadArtifact against DigitalOcean Spaces.
func UploadArtifactToSpaces(s3data DoS3Data, localPath string, key string) error {
	client, err := newSpacesClient(s3data)
	if err != nil {
		return err
	}

	return uploadFile(client, s3data.BucketName, localPath, key)
}

func uploadFile(api S3PutObjectAPI, bucket string, localPath string, key string) error {
	contentType, err := goutils.GetFileContentType(localPath)
	if err != nil {
		return fmt.Errorf("sniff content type: %w", err)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer file.Close()

	output, err := PutFile(context.TODO(), api, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	// For single part uploads the ETag is the hex MD5 of the content.
	localHash, err := uids.GetFileMd5Hash(localPath)
	if err != nil {
		return fmt.Errorf("hash %s: %w", localPath, err)
	}

	if output.ETag != nil {
		remoteHash := strings.Trim(*output.ETag, `"`)
		if remoteHash != localHash {
			return fmt.Errorf("%w: %s vs %s", ErrEtagMismatch, remoteHash, localHash)
		}
	}

	return nil
}

// DeleteArtifact removes an object from the bucket.
func DeleteArtifact(s3data abtests.S3Data, key string) error {
	client, err := newClient(s3data)
	if err != nil {
		return err
	}

	_, err = DeleteFile(context.TODO(), client, &s3.DeleteObjectInput{
		Bucket: aws.String(s3data.AwsBucketName),
		Key:    aws.String(key),
	})
	return err
}

// DeleteFromSpaces removes an object from a Spaces bucket.
func DeleteFromSpaces(s3data DoS3Data, key string) error {
	client, err := newSpacesClient(s3data)
	if err != nil {
		return err
	}

	_, err = DeleteFile(context.TODO(), client, &s3.DeleteObjectInput{
		Bucket: aws.String(s3data.BucketName),
		Key:    aws.String(key),
	})
	return err
}
