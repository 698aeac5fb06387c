// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/roomboard/models"
	"github.com/wfunc/roomboard/room"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.CenterModel{}, &models.ScenarioModel{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// LoadCenters 按位置加载全部场馆及其场景
func (p *GormPostgreSQL) LoadCenters() ([]room.Center, error) {
	var rows []models.CenterModel
	err := p.db.
		Preload("Scenarios", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("position").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	centers := make([]room.Center, 0, len(rows))
	for _, row := range rows {
		centers = append(centers, row.ToCenter())
	}
	return centers, nil
}

// SaveCenters upserts every center and scenario in one transaction.
func (p *GormPostgreSQL) SaveCenters(centers []room.Center) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		for i, c := range centers {
			model := models.FromCenter(i, c)
			scenarios := model.Scenarios
			model.Scenarios = nil

			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error; err != nil {
				return fmt.Errorf("save center %s: %w", c.ID, err)
			}
			if len(scenarios) == 0 {
				continue
			}
			if err := tx.Clauses(upsertScenarios).Create(&scenarios).Error; err != nil {
				return fmt.Errorf("save scenarios of %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// SaveScenario 保存单个场景（UPSERT）
func (p *GormPostgreSQL) SaveScenario(centerID string, position int, scenario room.Scenario) error {
	model := models.FromScenario(centerID, position, scenario)
	return p.db.Clauses(upsertScenarios).Create(&model).Error
}

var upsertScenarios = clause.OnConflict{
	Columns:   []clause.Column{{Name: "center_id"}, {Name: "position"}},
	UpdateAll: true,
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction 事务支持
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}
