package model

// GPU is a catalog entry identified by its model and vendor.
type GPU struct {
	GPUID     int64  `gorm:"column:gpu_id;primaryKey;autoIncrement"`
	GPUModel  string `gorm:"column:gpu_model;uniqueIndex:idx_gpu_model_vendor;not null"`
	GPUVendor string `gorm:"column:gpu_vendor;uniqueIndex:idx_gpu_model_vendor;not null"`
}

func (GPU) TableName() string {
	return "gpu"
}

// MinionGPU records a GPU installed in a minion.
type MinionGPU struct {
	ServerID int64 `gorm:"column:server_id;primaryKey;autoIncrement:false"`
	GPUID    int64 `gorm:"column:gpu_id;primaryKey;autoIncrement:false"`
	Present  bool  `gorm:"column:present;not null;default:true"`
}

func (MinionGPU) TableName() string {
	return "minion_gpu"
}

// All returns every model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Minion{},
		&Package{},
		&MinionPackage{},
		&Interface{},
		&MinionInterface{},
		&MinionIP4{},
		&GPU{},
		&MinionGPU{},
	}
}
