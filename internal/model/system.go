package model

// VersionInfo reports the running build and the state of the database schema.
type VersionInfo struct {
	AppVersion      string `json:"appVersion"`
	DbVersion       int64  `json:"dbVersion"`
	LatestDbVersion int64  `json:"latestDbVersion"`
	MigrationNeeded bool   `json:"migrationNeeded"`
}
