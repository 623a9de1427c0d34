package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/dustfall/dustfall/sim/core"
)

// cellSimWGSL is the simulation kernel entry. The per-material update
// rules live behind this entry point; the committed kernel carries
// state forward unchanged so the substrate can be exercised end to end
// while rules are developed against the same bindings.
const cellSimWGSL = `
struct Params {
    chunk_size: u32,
    frame: u32,
    seed: u32,
    _pad: u32,
}

struct MaterialProps {
    density_friction: u32,
    flags_packed: u32,
}

@group(0) @binding(0) var<storage, read> cells_in: array<vec2<u32>>;
@group(0) @binding(1) var<storage, read_write> cells_out: array<vec2<u32>>;
@group(0) @binding(2) var<storage, read> materials: array<MaterialProps>;
@group(0) @binding(3) var<uniform> params: Params;
@group(0) @binding(4) var<storage, read> intents: array<u32>;

@compute @workgroup_size(16, 16)
fn simulate(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.chunk_size || gid.y >= params.chunk_size) {
        return;
    }
    let idx = gid.y * params.chunk_size + gid.x;
    cells_out[idx] = cells_in[idx];
}
`

// Pipeline is the compute pipeline for the cell simulation step, plus
// the layout its bind groups are built from.
type Pipeline struct {
	pipeline *wgpu.ComputePipeline
	log      core.Logger
}

// NewPipeline compiles the simulation shader and builds the pipeline.
func NewPipeline(device *wgpu.Device, logger core.Logger) (*Pipeline, error) {
	log := core.OrNop(logger)
	log.Infof("creating cell compute pipeline")

	shader, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "CellSimShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: cellSimWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("create cell shader: %w", err)
	}
	defer shader.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "CellSimPipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shader,
			EntryPoint: "simulate",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create cell pipeline: %w", err)
	}
	return &Pipeline{pipeline: pipeline, log: log}, nil
}

// CreateBindGroup binds one simulation direction: read in, write out.
func (p *Pipeline) CreateBindGroup(device *wgpu.Device, in, out, materials, params, intents *wgpu.Buffer) (*wgpu.BindGroup, error) {
	return device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "CellSimBindGroup",
		Layout: p.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: in, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: out, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: materials, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: params, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: intents, Size: wgpu.WholeSize},
		},
	})
}

// Dispatch records one simulation step into the encoder.
func (p *Pipeline) Dispatch(encoder *wgpu.CommandEncoder, bindGroup *wgpu.BindGroup, chunkSize uint32) {
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	groups := WorkgroupsFor(chunkSize)
	pass.DispatchWorkgroups(groups, groups, 1)
	pass.End()
}

// Release frees the pipeline.
func (p *Pipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}
