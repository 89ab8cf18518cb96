package postgres

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// columnInfo converts pgx field descriptions into result column metadata.
func columnInfo(fields []pgconn.FieldDescription) []models.ColumnInfo {
	columns := make([]models.ColumnInfo, len(fields))
	for i, fd := range fields {
		columns[i] = models.ColumnInfo{
			Name: fd.Name,
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}
	return columns
}

// normalizeValue rewrites driver-native values into JSON-friendly ones.
// pgx hands UUID columns back as [16]byte, which would otherwise marshal
// as an array of numbers.
func normalizeValue(v any) any {
	if b, ok := v.([16]byte); ok {
		return uuid.UUID(b).String()
	}
	return v
}

// pgTypeNameFromOID maps PostgreSQL type OIDs to readable type names.
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 18:
		return "CHAR"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 26:
		return "OID"
	case 114:
		return "JSON"
	case 142:
		return "XML"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 790:
		return "MONEY"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1186:
		return "INTERVAL"
	case 1266:
		return "TIMETZ"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	// Array types
	case 1000:
		return "BOOL[]"
	case 1005:
		return "INT2[]"
	case 1007:
		return "INT4[]"
	case 1016:
		return "INT8[]"
	case 1009:
		return "TEXT[]"
	case 1015:
		return "VARCHAR[]"
	case 1021:
		return "FLOAT4[]"
	case 1022:
		return "FLOAT8[]"
	case 2951:
		return "UUID[]"
	case 3807:
		return "JSONB[]"
	default:
		return "UNKNOWN"
	}
}
