package goutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

/* Get float32, float64, int value from a string array */
func GetNumberColValue[T float64 | float32 | int](row []string, position int, mode T) (T, error) {
	if len(row) < (position + 1) {
		return 0, fmt.Errorf("position %d out of range", position)
	}

	switch any(mode).(type) {
	case int:
		number, err := strconv.Atoi(row[position])
		if err != nil {
			return 0, err
		}

		return T(number), nil
	case float32:
		number, err := strconv.ParseFloat(row[position], 32)
		if err != nil {
			return 0, err
		}

		return T(number), nil
	case float64:
		number, err := strconv.ParseFloat(row[position], 64)
		if err != nil {
			return 0, err
		}

		return T(number), nil
	default:
		return 0, fmt.Errorf("unsupported number type")
	}
}

func JoinIntArray(values []int, delim string) string {
	stringValues := make([]string, 0)
	for _, value := range values {
		stringValues = append(stringValues, fmt.Sprint(value))
	}

	return strings.Trim(strings.Join(strings.Fields(fmt.Sprint(stringValues)), delim), "[]")
}

func GetFileContentType(fileName string) (string, error) {
	// Open the file whose type you
	// want to check
	file, err := os.Open(fileName)

	if err != nil {
		return "", err
	}

	defer file.Close()

	// to sniff the content type only the first
	// 512 bytes are used.

	buf := make([]byte, 512)

	n, err := file.Read(buf)

	if err != nil {
		return "", err
	}

	// the function that actually does the trick
	contentType := http.DetectContentType(buf[:n])

	return contentType, nil
}

func GetFileContent(filename string) ([]byte, error) {
	content, err := os.ReadFile(filename)

	if err != nil {
		return nil, err
	}

	return content, nil
}

func GetJsonFromFile(fileName string) ([]byte, error) {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	if !json.Valid(content) {
		return nil, fmt.Errorf("%s does not contain valid json", fileName)
	}

	return content, nil
}

// GetTitleString turns a snake_case column name into a chart label,
// e.g. "mental_health_condition" -> "Mental Health Condition".
func GetTitleString(titleString string) string {
	titleString = strings.ReplaceAll(titleString, "_", " ")
	titleString = strings.ToLower(titleString)
	caser := cases.Title(language.English)
	return caser.String(titleString)
}
