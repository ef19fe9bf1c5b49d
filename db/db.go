// Package godb loads datasets from MySQL or PostgreSQL through gorm and
// persists analysis results so runs can be compared later.
package godb

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	mysqlxx "github.com/go-sql-driver/mysql"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/stats"
)

// JSONB is a generic JSON document column for PostgreSQL result rows.
type JSONB map[string]interface{}

// Value Marshal
func (jsonField JSONB) Value() (driver.Value, error) {
	return json.Marshal(jsonField)
}

// Scan Unmarshal
func (jsonField *JSONB) Scan(value interface{}) error {
	data, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(data, &jsonField)
}

func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,  // Slow SQL threshold
			LogLevel:                  logger.Error, // Log level
			IgnoreRecordNotFoundError: true,         // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,        // Disable color
		},
	)
}

// InitData opens a MySQL connection pool from the database section of the
// configuration and pings it.
func InitData(conf abtests.DatabaseData) (*gorm.DB, *sql.DB, error) {
	dbPort := strconv.Itoa(conf.Port)
	dsn := conf.Username + ":" + conf.Password + "@tcp(" + conf.Server + ":" + dbPort + ")/" + conf.Dbname + "?charset=utf8mb4&parseTime=True&loc=Local"

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, nil, err
	}

	return pingDb(db)
}

// InitPostgresData opens a PostgreSQL connection pool from the database
// section of the configuration and pings it.
func InitPostgresData(conf abtests.DatabaseData) (*gorm.DB, *sql.DB, error) {
	dbPort := strconv.Itoa(conf.Port)
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", conf.Server, conf.Username, conf.Password, conf.Dbname, dbPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, nil, err
	}

	return pingDb(db)
}

// GetDb opens a MySQL connection with server certificate verification when
// the configuration asks for TLS, for survey databases that only accept
// encrypted connections.
func GetDb(conf abtests.DatabaseData) (*gorm.DB, error) {
	cfg := mysqlxx.Config{
		User:   conf.Username,
		Passwd: conf.Password,
		DBName: conf.Dbname,
		Addr:   conf.Server + ":" + strconv.Itoa(conf.Port),
		Net:    "tcp",
	}

	if conf.Ssl {
		cfg.TLSConfig = "custom"

		rootCertPool := x509.NewCertPool()
		pem, err := os.ReadFile(conf.SslCertificate)
		if err != nil {
			return nil, fmt.Errorf("read ssl certificate: %w", err)
		}
		if ok := rootCertPool.AppendCertsFromPEM(pem); !ok {
			return nil, errors.New("failed to append PEM")
		}
		mysqlxx.RegisterTLSConfig("custom", &tls.Config{
			ServerName: conf.Server,
			RootCAs:    rootCertPool,
		})
	}

	mysqlDb, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.New("can't create database")
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn: mysqlDb,
	}), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, errors.New("can't create GORM database")
	}

	return db, nil
}

func pingDb(db *gorm.DB) (*gorm.DB, *sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}

	if err = sqlDB.Ping(); err != nil {
		return nil, nil, err
	}

	return db, sqlDB, nil
}

// LoadDataset runs a SELECT and shapes the rows into a dataset. Columns with
// a numeric database type become numeric columns, everything else becomes
// categorical; NULL maps to the missing value of the column kind.
func LoadDataset(db *gorm.DB, query string, args ...interface{}) (*abtests.Dataset, error) {
	rows, err := db.Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	numeric := make([]bool, len(columnTypes))
	for i, columnType := range columnTypes {
		numeric[i] = isNumericDbType(columnType.DatabaseTypeName())
	}

	floats := make([][]float64, len(columnTypes))
	labels := make([][]string, len(columnTypes))

	for rows.Next() {
		cells := make([]interface{}, len(columnTypes))
		for i := range cells {
			if numeric[i] {
				cells[i] = new(sql.NullFloat64)
			} else {
				cells[i] = new(sql.NullString)
			}
		}

		if err := rows.Scan(cells...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		for i, cell := range cells {
			if numeric[i] {
				value := cell.(*sql.NullFloat64)
				if value.Valid {
					floats[i] = append(floats[i], value.Float64)
				} else {
					floats[i] = append(floats[i], math.NaN())
				}
			} else {
				value := cell.(*sql.NullString)
				labels[i] = append(labels[i], value.String)
			}
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	dataset := abtests.NewDataset()
	for i, columnType := range columnTypes {
		if numeric[i] {
			err = dataset.AddNumericColumn(columnType.Name(), floats[i])
		} else {
			err = dataset.AddCategoricalColumn(columnType.Name(), labels[i])
		}
		if err != nil {
			return nil, err
		}
	}

	return dataset, nil
}

func isNumericDbType(typeName string) bool {
	switch typeName {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT",
		"FLOAT", "DOUBLE", "DECIMAL", "NUMERIC", "REAL",
		"INT2", "INT4", "INT8", "FLOAT4", "FLOAT8":
		return true
	}
	return false
}

// AssociationRun is one persisted association matrix, stored as a JSON
// document keyed by the run identifier.
type AssociationRun struct {
	ID        uint           `gorm:"primaryKey"`
	RunUid    string         `gorm:"column:run_uid;index"`
	Matrix    datatypes.JSON `gorm:"column:matrix"`
	CreatedAt time.Time
}

func (AssociationRun) TableName() string {
	return "association_runs"
}

// SaveAssociationMatrix stores an association matrix under a run identifier.
func SaveAssociationMatrix(db *gorm.DB, runUid string, m *stats.AssociationMatrix) error {
	document, err := json.Marshal(map[string]interface{}{
		"columns": m.Columns,
		"values":  m.Values,
	})
	if err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}

	run := AssociationRun{RunUid: runUid, Matrix: datatypes.JSON(document)}
	if err := db.Create(&run).Error; err != nil {
		return fmt.Errorf("save matrix: %w", err)
	}

	return nil
}

// PrevalenceRun is one persisted prevalence table, one JSONB document with
// the condition rates and Wilson bounds of a run.
type PrevalenceRun struct {
	ID        uint   `gorm:"primaryKey"`
	RunUid    string `gorm:"column:run_uid;index"`
	Records   JSONB  `gorm:"column:records;type:jsonb"`
	CreatedAt time.Time
}

func (PrevalenceRun) TableName() string {
	return "prevalence_runs"
}

// SavePrevalenceRecords stores the prevalence table of a run.
func SavePrevalenceRecords(db *gorm.DB, runUid string, records []stats.PrevalenceRecord) error {
	document := make(JSONB, len(records))
	for _, record := range records {
		document[record.Condition] = map[string]float64{
			"rate":  record.Rate,
			"lower": record.Lower,
			"upper": record.Upper,
		}
	}

	run := PrevalenceRun{RunUid: runUid, Records: document}
	if err := db.Create(&run).Error; err != nil {
		return fmt.Errorf("save prevalence records: %w", err)
	}

	return nil
}
