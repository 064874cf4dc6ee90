package model

import "time"

// Minion is a managed host as last reported by its audit.
type Minion struct {
	ServerID        int64     `gorm:"column:server_id;primaryKey;autoIncrement:false"`
	MinionID        string    `gorm:"column:id;index:idx_minion_id;not null"`
	Host            string    `gorm:"column:host"`
	FQDN            string    `gorm:"column:fqdn"`
	OS              string    `gorm:"column:os"`
	OSRelease       string    `gorm:"column:osrelease"`
	Kernel          string    `gorm:"column:kernel"`
	KernelRelease   string    `gorm:"column:kernelrelease"`
	CPUModel        string    `gorm:"column:cpu_model"`
	BIOSReleaseDate string    `gorm:"column:biosreleasedate"`
	BIOSVersion     string    `gorm:"column:biosversion"`
	MemTotal        int64     `gorm:"column:mem_total"`
	NumCPUs         int       `gorm:"column:num_cpus"`
	NumGPUs         int       `gorm:"column:num_gpus"`
	SaltVersion     string    `gorm:"column:saltversion"`
	SELinuxEnabled  bool      `gorm:"column:selinux_enabled"`
	SELinuxEnforced string    `gorm:"column:selinux_enforced"`
	PackageTotal    int64     `gorm:"column:package_total"`
	LastAudit       time.Time `gorm:"column:last_audit"`
	LastSeen        time.Time `gorm:"column:last_seen"`
}

func (Minion) TableName() string {
	return "minion"
}
