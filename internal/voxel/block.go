package voxel

// BlockType identifies the kind of a block.
type BlockType uint8

const (
	BlockTypeAir BlockType = iota
	BlockTypeStone
	BlockTypeDirt
	BlockTypeGrass
	BlockTypeBedrock
	BlockTypeSand
	BlockTypeGravel
	BlockTypeWater
	BlockTypeLog
	BlockTypeLeaves
	BlockTypePlanks
	BlockTypeCobblestone
	BlockTypeGlass
)

var blockTypeNames = [...]string{
	BlockTypeAir:         "air",
	BlockTypeStone:       "stone",
	BlockTypeDirt:        "dirt",
	BlockTypeGrass:       "grass",
	BlockTypeBedrock:     "bedrock",
	BlockTypeSand:        "sand",
	BlockTypeGravel:      "gravel",
	BlockTypeWater:       "water",
	BlockTypeLog:         "log",
	BlockTypeLeaves:      "leaves",
	BlockTypePlanks:      "planks",
	BlockTypeCobblestone: "cobblestone",
	BlockTypeGlass:       "glass",
}

func (t BlockType) String() string {
	if int(t) < len(blockTypeNames) {
		return blockTypeNames[t]
	}
	return "unknown"
}

// Block is a single voxel value. The zero value is air.
type Block struct {
	Type BlockType
	Meta uint8
}

// Air is the default block returned for unloaded space.
var Air = Block{}

// B is shorthand for a block with zero metadata.
func B(t BlockType) Block {
	return Block{Type: t}
}

// IsAir reports whether the block is empty space.
func (b Block) IsAir() bool {
	return b.Type == BlockTypeAir
}

// IsSolid reports whether rays and placement treat the block as an obstacle.
func (b Block) IsSolid() bool {
	return b.Type != BlockTypeAir && b.Type != BlockTypeWater
}
