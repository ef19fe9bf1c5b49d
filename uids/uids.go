package uids

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
	"golang.org/x/crypto/scrypt"

	cryptorand "crypto/rand"

	abtests "github.com/dklovas/A-B-Tests"
)

func GetUid() string {
	// Create new uniqueid
	uuidString := uuid.NewString()
	uuidString = strings.ToUpper(uuidString)
	uuidString = strings.Replace(uuidString, "-", "", -1)

	now := time.Now()
	nanoSeconds := now.UnixNano()

	hexValue := fmt.Sprintf("%x", nanoSeconds)
	hexValue = strings.ToUpper(hexValue)

	return hexValue + "-" + uuidString
}

func GetUidList(numberOfElements int) []string {
	uids := make([]string, numberOfElements)
	for i := 0; i < numberOfElements; i++ {
		uids[i] = GetUid()
	}

	return uids
}

func GetUlid() string {
	ulid := ulid.MustNew(ulid.Now(), cryptorand.Reader)
	return ulid.String()
}

func GetUlidList(numberOfElements int) []string {
	ulids := make([]string, numberOfElements)
	for i := 0; i < numberOfElements; i++ {
		ulids[i] = GetUlid()
	}

	return ulids
}

func GetMd5Hash(originalString string) string {
	data := []byte(originalString)
	return fmt.Sprintf("%x", md5.Sum(data))
}

// GetFileMd5Hash returns the hex MD5 of a file's content, the same value S3
// reports as the ETag of a single-part upload.
func GetFileMd5Hash(fileName string) (string, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Pseudonymizer replaces sensitive labels with stable opaque tokens so survey
// identifier columns can be shared without exposing the raw values. The same
// secret and salt always produce the same token for a value, which keeps
// contingency tables and prevalence counts intact.
type Pseudonymizer struct {
	aead  cipher.AEAD
	nonce []byte
}

func NewPseudonymizer(secret string, salt string) (*Pseudonymizer, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty secret")
	}

	key, err := scrypt.Key([]byte(secret), []byte(salt), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, err
	}

	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}

	// The nonce is fixed on purpose: encryption here is a deterministic
	// mapping, not message secrecy against a repeated-nonce attacker.
	digest := md5.Sum([]byte(salt + secret))
	nonce := digest[:aead.NonceSize()]

	return &Pseudonymizer{aead: aead, nonce: nonce}, nil
}

func (p *Pseudonymizer) Token(value string) string {
	sealed := p.aead.Seal(nil, p.nonce, []byte(value), nil)
	return hex.EncodeToString(sealed)
}

// PseudonymizeColumn returns a copy of the dataset with every label of the
// given categorical column replaced by its token. Missing cells stay missing.
func (p *Pseudonymizer) PseudonymizeColumn(d *abtests.Dataset, column string) (*abtests.Dataset, error) {
	labels, err := d.Categorical(column)
	if err != nil {
		return nil, err
	}

	tokens := make([]string, len(labels))
	for i, label := range labels {
		if label == "" {
			continue
		}
		tokens[i] = p.Token(label)
	}

	result := abtests.NewDataset()
	for _, name := range d.ColumnNames() {
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}

		if name == column {
			err = result.AddCategoricalColumn(name, tokens)
		} else if col.Kind == abtests.Numeric {
			err = result.AddNumericColumn(name, col.Floats)
		} else {
			err = result.AddCategoricalColumn(name, col.Labels)
		}
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}
