package model

// Package is a catalog entry for an installed package name.
type Package struct {
	PackageID   int64  `gorm:"column:package_id;primaryKey;autoIncrement"`
	PackageName string `gorm:"column:package_name;uniqueIndex;not null"`
}

func (Package) TableName() string {
	return "package"
}

// MinionPackage records one installed version of a package on a minion.
// Several versions of the same package may be present at once (multilib).
type MinionPackage struct {
	ServerID       int64  `gorm:"column:server_id;primaryKey;autoIncrement:false"`
	PackageID      int64  `gorm:"column:package_id;primaryKey;autoIncrement:false"`
	PackageVersion string `gorm:"column:package_version;primaryKey"`
	Present        bool   `gorm:"column:present;not null;default:true"`
}

func (MinionPackage) TableName() string {
	return "minion_package"
}
