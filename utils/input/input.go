// Package input 地图数据加载
package input

import (
	"context"
	"fmt"

	"git.fiblab.net/general/common/v2/cache"
	"git.fiblab.net/general/common/v2/mongoutil"
	"git.fiblab.net/general/common/v2/protoutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/protobuf/proto"
)

// LoadMap 加载地图
// 参数：c-输入配置，cacheDir-本地缓存目录（为空则禁用缓存）
// 返回：地图protobuf；任何数据源不可用时返回ErrLoadConnection
// 算法说明：
// 1. 指定了文件时直接从文件读取
// 2. 否则先查本地缓存，缓存缺失时从MongoDB下载并写入缓存
// 3. only_cache为真时不访问MongoDB
func LoadMap(c config.Input, cacheDir string) (*mapv2.Map, error) {
	if c.Map.File != "" {
		var m mapv2.Map
		if err := protoutil.UnmarshalFromFile(&m, c.Map.File); err != nil {
			return nil, fmt.Errorf("load map from file %s: %v: %w", c.Map.File, err, entity.ErrLoadConnection)
		}
		return &m, nil
	}
	if !preCheckCache(cacheDir) {
		cacheDir = ""
	}
	var client *mongo.Client
	if c.URI != "" && !c.Map.OnlyCache {
		client = mongoutil.NewClient(c.URI)
		defer client.Disconnect(context.Background())
	}
	if client == nil && cacheDir == "" {
		return nil, fmt.Errorf("no map file, cache or database configured: %w", entity.ErrLoadConnection)
	}
	m, err := load[mapv2.Map](client, c.Map, cacheDir)
	if err != nil {
		return nil, fmt.Errorf("load map %s.%s: %v: %w", c.Map.DB, c.Map.Col, err, entity.ErrLoadConnection)
	}
	log.Infof("map %s: %d lanes, %d roads, %d junctions",
		m.GetHeader().GetName(), len(m.Lanes), len(m.Roads), len(m.Junctions))
	return m, nil
}

// load 从本地缓存或MongoDB加载protobuf
// 说明：client为nil时只使用缓存
func load[T any, PT interface {
	proto.Message
	*T
}](
	client *mongo.Client,
	inputPath config.InputPath,
	cacheDir string,
	opts ...*options.FindOptions,
) (PT, error) {
	var downloadFunc func() PT
	var downloadErr error
	if client != nil {
		coll := mongoutil.GetMongoColl(client, inputPath)
		downloadFunc = func() PT {
			pb, errs := mongoutil.DownloadPbFromMongo[T, PT](context.Background(), coll, nil, nil, opts...)
			for _, err := range errs {
				log.Errorf("failed to download: %v", err)
			}
			if len(errs) > 0 {
				downloadErr = errs[0]
			}
			return pb
		}
	}
	var zero PT
	log.Infof("start fetching from %s.%s", inputPath.DB, inputPath.Col)
	res, err := cache.LoadWithCache(cacheDir, inputPath, downloadFunc)
	if err != nil {
		return zero, err
	}
	if downloadErr != nil {
		return zero, downloadErr
	}
	log.Infof("finish fetching from %s.%s", inputPath.DB, inputPath.Col)
	return res, nil
}
