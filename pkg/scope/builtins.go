package scope

import "fmt"

// builtinFuncs are the predeclared functions.
var builtinFuncs = []string{
	// constructors and conversions are covered by the type names
	"bitcast", "all", "any", "select", "arrayLength",
	"abs", "acos", "acosh", "asin", "asinh", "atan", "atanh", "atan2",
	"ceil", "clamp", "cos", "cosh", "countLeadingZeros", "countOneBits",
	"countTrailingZeros", "cross", "degrees", "determinant", "distance", "dot",
	"dot4U8Packed", "dot4I8Packed", "exp", "exp2", "extractBits",
	"faceForward", "firstLeadingBit", "firstTrailingBit", "floor", "fma",
	"fract", "frexp", "insertBits", "inverseSqrt", "ldexp", "length", "log",
	"log2", "max", "min", "mix", "modf", "normalize", "pow", "quantizeToF16",
	"radians", "reflect", "refract", "reverseBits", "round", "saturate",
	"sign", "sin", "sinh", "smoothstep", "sqrt", "step", "tan", "tanh",
	"transpose", "trunc",
	"dpdx", "dpdxCoarse", "dpdxFine", "dpdy", "dpdyCoarse", "dpdyFine",
	"fwidth", "fwidthCoarse", "fwidthFine",
	"textureDimensions", "textureGather", "textureGatherCompare", "textureLoad",
	"textureNumLayers", "textureNumLevels", "textureNumSamples",
	"textureSample", "textureSampleBias", "textureSampleCompare",
	"textureSampleCompareLevel", "textureSampleGrad", "textureSampleLevel",
	"textureSampleBaseClampToEdge", "textureStore",
	"atomicLoad", "atomicStore", "atomicAdd", "atomicSub", "atomicMax",
	"atomicMin", "atomicAnd", "atomicOr", "atomicXor", "atomicExchange",
	"atomicCompareExchangeWeak",
	"pack4x8snorm", "pack4x8unorm", "pack4xI8", "pack4xU8", "pack4xI8Clamp",
	"pack4xU8Clamp", "pack2x16snorm", "pack2x16unorm", "pack2x16float",
	"unpack4x8snorm", "unpack4x8unorm", "unpack4xI8", "unpack4xU8",
	"unpack2x16snorm", "unpack2x16unorm", "unpack2x16float",
	"storageBarrier", "textureBarrier", "workgroupBarrier", "workgroupUniformLoad",
	"subgroupAdd", "subgroupAll", "subgroupAnd", "subgroupAny", "subgroupBallot",
	"subgroupBroadcast", "subgroupBroadcastFirst", "subgroupElect",
	"subgroupExclusiveAdd", "subgroupExclusiveMul", "subgroupInclusiveAdd",
	"subgroupInclusiveMul", "subgroupMax", "subgroupMin", "subgroupMul",
	"subgroupOr", "subgroupShuffle", "subgroupShuffleDown", "subgroupShuffleUp",
	"subgroupShuffleXor", "subgroupXor",
	"quadBroadcast", "quadSwapDiagonal", "quadSwapX", "quadSwapY",
}

// builtinTypes are the predeclared types and type generators.
var builtinTypes = []string{
	"bool", "i32", "u32", "f32", "f16",
	"vec2", "vec3", "vec4", "array", "atomic", "ptr",
	"mat2x2", "mat2x3", "mat2x4", "mat3x2", "mat3x3", "mat3x4",
	"mat4x2", "mat4x3", "mat4x4",
	"sampler", "sampler_comparison",
	"texture_1d", "texture_2d", "texture_2d_array", "texture_3d",
	"texture_cube", "texture_cube_array", "texture_multisampled_2d",
	"texture_depth_multisampled_2d", "texture_external",
	"texture_storage_1d", "texture_storage_2d", "texture_storage_2d_array",
	"texture_storage_3d", "texture_depth_2d", "texture_depth_2d_array",
	"texture_depth_cube", "texture_depth_cube_array",
	"__frexp_result_f32", "__modf_result_f32",
}

// builtinEnumerants are the predeclared address spaces, access modes and
// texel formats used as template arguments.
var builtinEnumerants = []string{
	"function", "private", "workgroup", "uniform", "storage", "handle",
	"read", "write", "read_write",
	"rgba8unorm", "rgba8snorm", "rgba8uint", "rgba8sint", "rgba16uint",
	"rgba16sint", "rgba16float", "r32uint", "r32sint", "r32float", "rg32uint",
	"rg32sint", "rg32float", "rgba32uint", "rgba32sint", "rgba32float",
	"bgra8unorm", "r8unorm", "r8snorm", "r8uint", "r8sint", "rg8unorm",
	"rg8snorm", "rg8uint", "rg8sint", "r16uint", "r16sint", "r16float",
	"rg16uint", "rg16sint", "rg16float", "rgb10a2uint", "rgb10a2unorm",
	"rg11b10ufloat",
}

var builtins = func() map[string]bool {
	m := make(map[string]bool)
	for _, list := range [][]string{builtinFuncs, builtinTypes, builtinEnumerants} {
		for _, name := range list {
			m[name] = true
		}
	}
	// vector and matrix shorthands: vec3f, vec2i, mat4x4h
	for n := 2; n <= 4; n++ {
		for _, s := range []string{"f", "h", "i", "u"} {
			m[fmt.Sprintf("vec%d%s", n, s)] = true
		}
		for k := 2; k <= 4; k++ {
			for _, s := range []string{"f", "h"} {
				m[fmt.Sprintf("mat%dx%d%s", n, k, s)] = true
			}
		}
	}
	return m
}()

// IsBuiltin reports whether name is predeclared.
func IsBuiltin(name string) bool {
	return builtins[name]
}

// skipAttrs take enumerants or nothing; their arguments are not references.
var skipAttrs = map[string]bool{
	"builtin":     true,
	"interpolate": true,
	"diagnostic":  true,
	"if":          true,
}
