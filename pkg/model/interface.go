package model

// Interface is a catalog entry for a network interface name.
type Interface struct {
	InterfaceID   int64  `gorm:"column:interface_id;primaryKey;autoIncrement"`
	InterfaceName string `gorm:"column:interface_name;uniqueIndex;not null"`
}

func (Interface) TableName() string {
	return "interface"
}

// MinionInterface records an interface present on a minion with its MAC address.
type MinionInterface struct {
	ServerID    int64  `gorm:"column:server_id;primaryKey;autoIncrement:false"`
	InterfaceID int64  `gorm:"column:interface_id;primaryKey;autoIncrement:false"`
	MAC         string `gorm:"column:mac"`
	Present     bool   `gorm:"column:present;not null;default:true"`
}

func (MinionInterface) TableName() string {
	return "minion_interface"
}

// MinionIP4 records one IPv4 address bound to an interface of a minion.
type MinionIP4 struct {
	ServerID    int64  `gorm:"column:server_id;primaryKey;autoIncrement:false"`
	InterfaceID int64  `gorm:"column:interface_id;primaryKey;autoIncrement:false"`
	IP4         string `gorm:"column:ip4;primaryKey"`
	Present     bool   `gorm:"column:present;not null;default:true"`
}

func (MinionIP4) TableName() string {
	return "minion_ip4"
}
