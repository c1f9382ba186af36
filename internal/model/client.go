package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client represents a customer record owned by a User. JSON field names
// follow the wire contract consumed by the mobile app.
type Client struct {
	ID           uint                `json:"id" gorm:"primaryKey"`
	UserID       uint                `json:"id_usuario" gorm:"column:id_usuario;not null;index"`
	Nome         string              `json:"nome" gorm:"size:100;not null"`
	Telefone     *string             `json:"telefone" gorm:"size:20"`
	Endereco     string              `json:"endereco" gorm:"size:255;not null"`
	Latitude     decimal.NullDecimal `json:"latitude" gorm:"type:decimal(10,8)"`
	Longitude    decimal.NullDecimal `json:"longitude" gorm:"type:decimal(11,8)"`
	FotoCaminho  *string             `json:"foto_caminho" gorm:"column:foto_caminho"`
	DataCadastro time.Time           `json:"data_cadastro" gorm:"column:data_cadastro;autoCreateTime"`
}

// TableName keeps the table name the mobile app's backend always used.
func (Client) TableName() string {
	return "clientes"
}
